package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"hotel-booking/database"
	"hotel-booking/models"
)

// IsAvailable reports whether none of the unit's occupied nights falls in the
// inclusive range checkIn..checkOut. The caller guarantees checkIn <= checkOut.
func IsAvailable(unit models.RoomUnit, checkIn, checkOut time.Time) bool {
	start, end := Day(checkIn), Day(checkOut)
	for _, d := range unit.UnavailableDates {
		t := d.Time()
		if !t.Before(start) && !t.After(end) {
			return false
		}
	}
	return true
}

// CountAvailable returns how many units of room are free for the whole range.
func CountAvailable(room models.Room, checkIn, checkOut time.Time) int {
	n := 0
	for _, unit := range room.RoomNumbers {
		if IsAvailable(unit, checkIn, checkOut) {
			n++
		}
	}
	return n
}

// UnitAvailability is one line of a room availability report.
type UnitAvailability struct {
	UnitID    string `json:"_id"`
	Number    int    `json:"number"`
	Available bool   `json:"available"`
}

// Report is the availability of every unit of a room for one range.
type Report struct {
	RoomID    string             `json:"roomId"`
	CheckIn   string             `json:"checkIn"`
	CheckOut  string             `json:"checkOut"`
	Available int                `json:"available"`
	Units     []UnitAvailability `json:"units"`
}

// RoomReport builds the per-unit availability of room.
func RoomReport(room models.Room, checkIn, checkOut time.Time) Report {
	report := Report{
		RoomID:   room.ID,
		CheckIn:  FormatDate(checkIn),
		CheckOut: FormatDate(checkOut),
		Units:    make([]UnitAvailability, 0, len(room.RoomNumbers)),
	}
	for _, unit := range room.RoomNumbers {
		free := IsAvailable(unit, checkIn, checkOut)
		if free {
			report.Available++
		}
		report.Units = append(report.Units, UnitAvailability{
			UnitID:    unit.ID,
			Number:    unit.Number,
			Available: free,
		})
	}
	return report
}

// DateWriter persists occupied nights with all-or-nothing semantics per unit.
type DateWriter interface {
	AddUnavailableDates(ctx context.Context, unitID string, dates []string) error
}

// Status is the outcome of reserving one unit.
type Status string

const (
	StatusReserved Status = "reserved"
	StatusConflict Status = "conflict"
	StatusNotFound Status = "not_found"
	StatusLocked   Status = "locked"
	StatusError    Status = "error"
)

// Result is the outcome of one unit in a batch reservation.
type Result struct {
	UnitID  string `json:"unitId"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Err     error  `json:"-"`
}

// Engine records confirmed bookings.
type Engine struct {
	store   DateWriter
	locker  Locker
	lockTTL time.Duration
}

// NewEngine returns an engine writing through store. A nil locker falls
// back to an in-process one.
func NewEngine(store DateWriter, locker Locker, lockTTL time.Duration) *Engine {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Second
	}
	return &Engine{store: store, locker: locker, lockTTL: lockTTL}
}

// ReserveDates marks unitID occupied on dates. It fails with
// database.ErrConflict when any date is already taken, in which case nothing
// is written, and with database.ErrNotFound for an unknown unit.
func (e *Engine) ReserveDates(ctx context.Context, unitID string, dates []time.Time) error {
	waitCtx, cancel := context.WithTimeout(ctx, e.lockTTL)
	release, err := e.locker.Acquire(waitCtx, "unit:"+unitID, e.lockTTL)
	cancel()
	if err != nil {
		return err
	}
	defer release()

	if err := e.store.AddUnavailableDates(ctx, unitID, formatDates(dates)); err != nil {
		return fmt.Errorf("reserve unit %s: %w", unitID, err)
	}
	logrus.WithFields(logrus.Fields{"unit": unitID, "nights": len(dates)}).Info("unit reserved")
	return nil
}

// Reserve books every unit for the inclusive range checkIn..checkOut. Units
// are independent: a failed unit does not undo the others.
func (e *Engine) Reserve(ctx context.Context, unitIDs []string, checkIn, checkOut time.Time) []Result {
	dates := DatesBetween(checkIn, checkOut)
	seen := make(map[string]bool, len(unitIDs))
	results := make([]Result, 0, len(unitIDs))
	for _, id := range unitIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		results = append(results, resultOf(id, e.ReserveDates(ctx, id, dates)))
	}
	return results
}

func resultOf(unitID string, err error) Result {
	r := Result{UnitID: unitID, Status: StatusReserved, Err: err}
	switch {
	case err == nil:
		return r
	case errors.Is(err, database.ErrConflict):
		r.Status = StatusConflict
	case errors.Is(err, database.ErrNotFound):
		r.Status = StatusNotFound
	case errors.Is(err, ErrLocked):
		r.Status = StatusLocked
	default:
		r.Status = StatusError
		r.Message = "something went wrong"
		logrus.WithError(err).WithField("unit", unitID).Error("reservation failed")
		return r
	}
	r.Message = err.Error()
	return r
}
