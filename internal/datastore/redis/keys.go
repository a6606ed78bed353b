package redis

import "fmt"

// KeyPrefix is the prefix for all account keys.
const KeyPrefix = "acct:"

// AccountKey returns the key of the account hash.
func AccountKey(id int64) string {
	return fmt.Sprintf("%saccount:%d", KeyPrefix, id)
}

// EventsKey returns the key of the account's event list, newest first.
func EventsKey(id int64) string {
	return fmt.Sprintf("%saccount:%d:events", KeyPrefix, id)
}

// SessionKey returns the key holding the account ID of a session token.
func SessionKey(token string) string {
	return fmt.Sprintf("%ssession:%s", KeyPrefix, token)
}

// UsernamesKey returns the key of the SET of taken usernames.
func UsernamesKey() string {
	return KeyPrefix + "usernames"
}

// AccountsKey returns the key of the ZSET of account IDs scored by creation time.
func AccountsKey() string {
	return KeyPrefix + "accounts"
}

// VIPKey returns the key of the ZSET of account IDs scored by VIP level.
func VIPKey() string {
	return KeyPrefix + "accounts:vip"
}

// SequenceKey returns the key of the account ID counter.
func SequenceKey() string {
	return KeyPrefix + "seq"
}
