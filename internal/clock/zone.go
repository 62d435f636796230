package clock

import "time"

// Real-world UTC offsets, in minutes east of GMT, lie in [MinOffset, MaxOffset].
const (
	MinOffset = -12 * 60
	MaxOffset = 14 * 60
)

func ValidOffset(minutes int) bool {
	return minutes >= MinOffset && minutes <= MaxOffset
}

// Zone supplies the UTC offset, in minutes east of GMT, used for conversions.
// Implementations are consulted at call time and never cache the offset, so a
// stored canonical time stays correct across DST changes.
type Zone interface {
	Offset() int
}

// Local reads the offset of the process' local time zone on every call.
type Local struct {
	Now func() time.Time
}

func (l Local) Offset() int {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	_, secs := now().Zone()
	return secs / 60
}

// Fixed is a constant offset, typically reported by a browser client.
type Fixed int

func (f Fixed) Offset() int { return int(f) }

// Converter binds the conversions to a Zone.
type Converter struct {
	Zone Zone
}

func NewConverter(z Zone) Converter {
	if z == nil {
		z = Local{}
	}
	return Converter{Zone: z}
}

func (c Converter) ToCanonical(local string) string {
	return LocalToCanonical(local, c.Zone.Offset())
}

func (c Converter) ToLocal(canonical string) string {
	return CanonicalToLocal(canonical, c.Zone.Offset())
}

// LocalMinute converts a canonical minute of day to the zone's wall clock.
func (c Converter) LocalMinute(canonical int) int {
	return Wrap(canonical + c.Zone.Offset())
}
