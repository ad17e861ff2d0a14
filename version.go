package tahti

import "fmt"

// Version identifies a revision of the event protocol in this package.
// During the 0.x development stage the protocol may still break between
// minor versions, so hosts and plugins must agree on major and minor;
// from 1.0 on, agreeing on major is enough.
type Version struct {
	Major    uint32
	Minor    uint32
	Revision uint32
}

// ProtocolVersion is the protocol revision this package implements.
var ProtocolVersion = Version{Major: 0, Minor: 24, Revision: 1}

// Compatible reports whether a host and a plugin built against the two
// versions can talk to each other. It is checked once when a plugin is
// loaded; an incompatible plugin is never instantiated, so the check
// never runs during processing.
func (v Version) Compatible(other Version) bool {
	if v.Major == 0 || other.Major == 0 {
		return v.Major == other.Major && v.Minor == other.Minor
	}
	return v.Major == other.Major
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
}
