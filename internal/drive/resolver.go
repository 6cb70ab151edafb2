package drive

import (
	"sort"

	"github.com/YuktaYBhat/Placement-cell-sub000/internal/models"
)

// RoundState is the student-facing label of a round.
type RoundState string

const (
	StateNotStarted       RoundState = "NOT_STARTED"
	StateActive           RoundState = "ACTIVE"
	StateTempClosed       RoundState = "TEMP_CLOSED"
	StatePermClosed       RoundState = "PERM_CLOSED"
	StateNotEligible      RoundState = "NOT_ELIGIBLE"
	StateAttendedAttended RoundState = "ATTENDED_ATTENDED"
	StateAttendedPassed   RoundState = "ATTENDED_PASSED"
	StateAttendedFailed   RoundState = "ATTENDED_FAILED"
)

// Attended reports whether the state comes from a recorded attendance.
func (s RoundState) Attended() bool {
	switch s {
	case StateAttendedAttended, StateAttendedPassed, StateAttendedFailed:
		return true
	}
	return false
}

// Snapshot is everything the resolver needs for one student and one job.
type Snapshot struct {
	// Rounds of the job, removed ones included; Resolve filters and sorts.
	Rounds []models.Round
	// Sessions holds the latest session per round id.
	Sessions map[uint]models.RoundSession
	// Attendance holds the student's attendance per round id.
	Attendance map[uint]models.RoundAttendance
	// Applicant is false when the student never applied to the job.
	Applicant bool
}

// RoundStatus is the resolved view of one visible round.
type RoundStatus struct {
	RoundID    uint
	RoundName  string
	RoundOrder int
	State      RoundState
	SessionID  uint
	Attendance *models.RoundAttendance
	Token      *ScanToken
}

// VisibleRounds returns the non-removed rounds sorted by order.
func VisibleRounds(rounds []models.Round) []models.Round {
	out := make([]models.Round, 0, len(rounds))
	for _, r := range rounds {
		if !r.IsRemoved {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Resolve computes one status per visible round, in round order. A round is
// unlocked only when the immediately preceding visible round was PASSED.
// Recorded attendance always wins over session state.
func Resolve(s Snapshot) []RoundStatus {
	visible := VisibleRounds(s.Rounds)
	out := make([]RoundStatus, 0, len(visible))

	var prev *models.RoundAttendance
	for i, r := range visible {
		st := RoundStatus{
			RoundID:    r.ID,
			RoundName:  r.Name,
			RoundOrder: r.Order,
		}
		sess, hasSession := s.Sessions[r.ID]
		if hasSession {
			st.SessionID = sess.ID
		}

		att, attended := s.Attendance[r.ID]
		switch {
		case attended:
			a := att
			st.Attendance = &a
			st.State = attendedState(att.Status)
		case !s.Applicant:
			st.State = StateNotEligible
		case i > 0 && (prev == nil || prev.Status != models.AttendancePassed):
			st.State = StateNotEligible
		case !hasSession:
			st.State = StateNotStarted
		default:
			st.State = sessionState(sess.Status)
		}

		out = append(out, st)
		prev = st.Attendance
	}
	return out
}

func attendedState(s models.AttendanceStatus) RoundState {
	switch s {
	case models.AttendancePassed:
		return StateAttendedPassed
	case models.AttendanceFailed:
		return StateAttendedFailed
	default:
		return StateAttendedAttended
	}
}

func sessionState(s models.SessionStatus) RoundState {
	switch s {
	case models.SessionActive:
		return StateActive
	case models.SessionTempClosed:
		return StateTempClosed
	default:
		return StatePermClosed
	}
}

// find returns the status of roundID, if visible.
func find(statuses []RoundStatus, roundID uint) (RoundStatus, bool) {
	for _, st := range statuses {
		if st.RoundID == roundID {
			return st, true
		}
	}
	return RoundStatus{}, false
}
