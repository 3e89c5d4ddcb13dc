package entity

import "time"

// Presence lives on the ephemeral channel and may be stale.
type Presence struct {
	UID        string    `json:"uid"`
	Online     bool      `json:"online"`
	LastSeenAt time.Time `json:"last_seen_at,omitempty"`
}

// OnlineIDs returns the online uids of a presence snapshot in input order.
func OnlineIDs(uids []string, snapshot map[string]Presence) []string {
	online := make([]string, 0, len(uids))
	for _, uid := range uids {
		if p, ok := snapshot[uid]; ok && p.Online {
			online = append(online, uid)
		}
	}
	return online
}
