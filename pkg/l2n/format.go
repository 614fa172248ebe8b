package l2n

// keyword is one construct of the netlist text format with its long and
// short spelling.
type keyword struct {
	long, short string
}

var (
	kwVersion     = keyword{"version", "V"}
	kwDescription = keyword{"description", "B"}
	kwUnit        = keyword{"unit", "U"}
	kwTop         = keyword{"top", "W"}
	kwLayer       = keyword{"layer", "L"}
	kwClass       = keyword{"class", "K"}
	kwConnect     = keyword{"connect", "C"}
	kwGlobal      = keyword{"global", "G"}
	kwCircuit     = keyword{"circuit", "X"}
	kwNet         = keyword{"net", "N"}
	kwName        = keyword{"name", "I"}
	kwPin         = keyword{"pin", "P"}
	kwDevice      = keyword{"device", "D"}
	kwTerminal    = keyword{"terminal", "T"}
	kwParam       = keyword{"param", "E"}
	kwLocation    = keyword{"location", "Y"}
	kwRotation    = keyword{"rotation", "O"}
	kwMirror      = keyword{"mirror", "M"}
	kwScale       = keyword{"scale", "S"}
	kwRect        = keyword{"rect", "R"}
	kwPolygon     = keyword{"polygon", "Q"}
)

// formatHeader marks files written by this package. Readers treat it as a
// comment.
const formatHeader = "#%l2n-klayout"

// FormatVersion is the version written into the header.
const FormatVersion = 1

func (k keyword) spelling(short bool) string {
	if short {
		return k.short
	}
	return k.long
}
