package rediskey

import "fmt"

// Leaderboard keys (global convention across services)
const (
	LeaderboardPrefix = "leaderboard"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildLeaderboardKey returns "leaderboard:{campaignID}:{metric}"
func BuildLeaderboardKey(campaignID, metric string) string {
	return fmt.Sprintf("%s:%s:%s", LeaderboardPrefix, campaignID, metric)
}
