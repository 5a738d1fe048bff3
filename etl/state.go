package etl

// State is a stage of a single ETL run.
type State int

// The states a run moves through. Aborted is only reached when the database
// never becomes available.
const (
	StateInit State = iota
	StateDBWait
	StateSchemaReady
	StateFetched
	StateParsed
	StateLoaded
	StateDone
	StateAborted
)

var stateNames = [...]string{
	StateInit:        "INIT",
	StateDBWait:      "DB_WAIT",
	StateSchemaReady: "SCHEMA_READY",
	StateFetched:     "FETCHED",
	StateParsed:      "PARSED",
	StateLoaded:      "LOADED",
	StateDone:        "DONE",
	StateAborted:     "ABORTED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}
