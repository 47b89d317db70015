// Package keys builds the canonical cache keys for every entity and counter.
// Every read and evict path must go through these helpers so a mutation in one
// component invalidates exactly what another component primed.
package keys

import "strconv"

// Entity keys.
func Profile(id string) string        { return "rbeam.auth.profile:" + id }
func ProfileUsername(u string) string { return "rbeam.auth.profile:" + u }
func Group(id int32) string           { return "rbeam.auth.gid:" + strconv.FormatInt(int64(id), 10) }
func Notification(id string) string    { return "rbeam.auth.notification:" + id }
func Warning(id string) string         { return "rbeam.auth.warning:" + id }
func IpBan(id string) string           { return "rbeam.auth.ipban:" + id }
func IpBlock(id string) string         { return "rbeam.auth.ipblock:" + id }
func Mail(id string) string            { return "rbeam.auth.mail:" + id }
func Label(id string) string           { return "rbeam.auth.label:" + id }
func Item(id string) string            { return "rbeam.auth.econ.item:" + id }
func Transaction(id string) string     { return "rbeam.auth.econ.transaction:" + id }

// Counter keys, maintained via atomic incr/decr and primed on miss.
func FollowersCount(id string) string     { return "rbeam.auth.followers_count:" + id }
func FollowingCount(id string) string     { return "rbeam.auth.following_count:" + id }
func NotificationCount(id string) string  { return "rbeam.auth.notification_count:" + id }
func FriendsCount(id string) string       { return "rbeam.app.friends_count:" + id }
func ResponseCount(id string) string      { return "rbeam.app.response_count:" + id }
func GlobalQuestionCount(id string) string { return "rbeam.app.global_question_count:" + id }
