package favorites

// State is the position of the synchronizer in its load/sync cycle.
type State int

const (
	Idle State = iota
	LoadingLocal
	ReadyLocal
	Authenticating
	SyncingRemote
	ReadyMerged
)

var stateNames = map[State]string{
	Idle:           "idle",
	LoadingLocal:   "loading-local",
	ReadyLocal:     "ready-local",
	Authenticating: "authenticating",
	SyncingRemote:  "syncing-remote",
	ReadyMerged:    "ready-merged",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Ready reports whether the set can be read, merged or not.
func (s State) Ready() bool {
	return s == ReadyLocal || s == ReadyMerged
}
