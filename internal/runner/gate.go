package runner

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"sqlgrade/internal/util"
)

// Exam gates are expressed as local clock times in IST regardless of the
// machine's timezone.
var istZone = func() *time.Location {
	if loc, err := time.LoadLocation("Asia/Kolkata"); err == nil {
		return loc
	}
	return time.FixedZone("IST", 5*3600+30*60)
}()

// GateOpenAt reports whether grading may proceed at now for an
// "HH:MM[:SS]" allowed_after gate. The comparison uses the IST time of
// day. An empty or malformed gate opens with a warning rather than
// blocking the run.
func GateOpenAt(allowedAfter string, now time.Time) (bool, string) {
	allowedAfter = strings.TrimSpace(allowedAfter)
	if allowedAfter == "" {
		return true, ""
	}
	h, m, s, err := parseClock(allowedAfter)
	if err != nil {
		util.Warnf("could not parse allowed_after=%q, proceeding without gate: %v", allowedAfter, err)
		return true, ""
	}

	ist := now.In(istZone)
	nh, nm, ns := ist.Clock()
	if nh*3600+nm*60+ns < h*3600+m*60+s {
		return false, fmt.Sprintf(
			"Tests may only be run after %02d:%02d:%02d IST. Current IST time: %02d:%02d:%02d.",
			h, m, s, nh, nm, ns)
	}
	return true, ""
}

func parseClock(raw string) (h, m, s int, err error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("want HH:MM or HH:MM:SS, got %q", raw)
	}
	h, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, 0, err
	}
	m, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, 0, err
	}
	if len(parts) == 3 {
		s, err = strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return 0, 0, 0, err
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || s < 0 || s > 59 {
		return 0, 0, 0, fmt.Errorf("clock time out of range: %q", raw)
	}
	return h, m, s, nil
}
