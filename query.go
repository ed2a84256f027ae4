package twitch

import (
	"net/url"
	"strings"
)

// queryPair is a single key/value parameter. Pairs keep insertion order so
// repeated keys (id=1&id=2) hit the API in the order the caller gave them.
type queryPair struct {
	key   string
	value string
}

// query accumulates URL parameters for a Helix endpoint.
type query struct {
	pairs []queryPair
}

func newQuery() *query {
	return &query{}
}

// add appends a single key/value pair. Empty values are dropped.
func (q *query) add(key, value string) *query {
	if value != "" {
		q.pairs = append(q.pairs, queryPair{key: key, value: value})
	}
	return q
}

// addList appends one pair per value under the same key, preserving order.
func (q *query) addList(key string, values []string) *query {
	for _, v := range values {
		q.add(key, v)
	}
	return q
}

// addUsers appends one pair per user reference, sniffing each value as a
// numeric user id or a login name.
func (q *query) addUsers(values []string) *query {
	return q.addUsersKeyed("id", "login", values)
}

// addUsersKeyed is addUsers with endpoint-specific parameter names
// (streams use user_id/user_login).
func (q *query) addUsersKeyed(idKey, loginKey string, values []string) *query {
	for _, v := range values {
		if isUserID(v) {
			q.add(idKey, v)
		} else {
			q.add(loginKey, v)
		}
	}
	return q
}

// encode renders the query string. The first pair is prefixed with "?",
// subsequent pairs with "&". An empty query encodes to "".
func (q *query) encode() string {
	if len(q.pairs) == 0 {
		return ""
	}

	var b strings.Builder
	for i, p := range q.pairs {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

// isUserID reports whether s looks like a numeric Twitch user id.
// Anything non-numeric is treated as a login name.
func isUserID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// userQueryKey picks the Helix parameter name for a user reference.
func userQueryKey(s string) string {
	if isUserID(s) {
		return "id"
	}
	return "login"
}
