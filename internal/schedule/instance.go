package schedule

import "github.com/knaveofdiamonds/tablefit/internal/roster"

// sharedOwner marks a GameInstance as event-provided rather than
// belonging to a specific attendee.
const sharedOwner = -1

// GameInstance is a single physical copy of a game (spec.md §3):
// either event-provided ("shared") or owned by one specific player.
// Instances are identified by index, never deduplicated by name — two
// players owning the same title are two distinct instances, and so are
// two copies owned by the same player.
type GameInstance struct {
	GameName string
	Owner    int // sharedOwner, or an index into the roster
}

// IsShared reports whether this instance is available in every session
// regardless of any single owner's attendance.
func (gi GameInstance) IsShared() bool {
	return gi.Owner == sharedOwner
}

// enumerateInstances builds the all_games list: shared games first, then
// each player's owns in roster order (spec.md §4.2.1). Order and
// duplicates are both significant — they are load-bearing for the
// per-player ownership multiplicity invariant (spec.md §9).
func enumerateInstances(players []roster.Player, sharedGames []string) []GameInstance {
	instances := make([]GameInstance, 0, len(sharedGames))
	for _, name := range sharedGames {
		instances = append(instances, GameInstance{GameName: name, Owner: sharedOwner})
	}
	for pi, p := range players {
		for _, name := range p.Owns {
			instances = append(instances, GameInstance{GameName: name, Owner: pi})
		}
	}
	return instances
}
