package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"skillswap/internal/cache"
	"skillswap/internal/pkg/validator"
	"skillswap/internal/wizard"
)

// BusyLister reports when a teacher already has sessions booked.
type BusyLister interface {
	BusyIntervals(ctx context.Context, teacherID string, from, to time.Time) ([]Interval, error)
}

type DayInput struct {
	DayOfWeek int    `json:"dayOfWeek" validate:"min=0,max=6"`
	IsActive  bool   `json:"isActive"`
	StartTime string `json:"startTime" validate:"required,hhmm"`
	EndTime   string `json:"endTime" validate:"required,hhmm"`
}

type SetWeeklyRequest struct {
	Availability []DayInput `json:"availability" validate:"max=7,dive"`
}

// FieldErrors carries per-field validation failures.
type FieldErrors struct {
	Fields map[string]string
}

func (e *FieldErrors) Error() string {
	return fmt.Sprintf("%s: %v", ErrValidation, e.Fields)
}

func (e *FieldErrors) Unwrap() error {
	return ErrValidation
}

type Service struct {
	repo  Repository
	busy  BusyLister
	cache cache.Cache
	loc   *time.Location
	now   func() time.Time
	log   *zap.Logger
}

type Option func(*Service)

func WithBusyLister(b BusyLister) Option {
	return func(s *Service) { s.busy = b }
}

// WithCache makes SetWeekly drop the cached weekly availability.
func WithCache(c cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, loc *time.Location, log *zap.Logger, opts ...Option) *Service {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{repo: repo, loc: loc, now: time.Now, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) GetWeekly(ctx context.Context, teacherID string) ([]WeeklyAvailability, error) {
	return s.repo.ListByTeacher(ctx, teacherID)
}

func (s *Service) SetWeekly(ctx context.Context, teacherID string, req SetWeeklyRequest) ([]WeeklyAvailability, error) {
	if fields := validator.Validate(req); fields != nil {
		return nil, &FieldErrors{Fields: fields}
	}

	seen := make(map[int]bool, len(req.Availability))
	days := make([]WeeklyAvailability, 0, len(req.Availability))
	for i, in := range req.Availability {
		if seen[in.DayOfWeek] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateDay, in.DayOfWeek)
		}
		seen[in.DayOfWeek] = true

		start, _ := time.Parse(wizard.TimeLayout, in.StartTime)
		end, _ := time.Parse(wizard.TimeLayout, in.EndTime)
		if !end.After(start) {
			return nil, fmt.Errorf("%w: availability[%d]", ErrWindow, i)
		}
		days = append(days, WeeklyAvailability{
			TeacherID: teacherID,
			DayOfWeek: in.DayOfWeek,
			IsActive:  in.IsActive,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
		})
	}

	if err := s.repo.ReplaceWeek(ctx, teacherID, days); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, cache.WeeklyAvailabilityKey(teacherID)); err != nil {
			s.log.Warn("availability cache invalidation failed", zap.String("teacher_id", teacherID), zap.Error(err))
		}
	}
	s.log.Info("weekly availability updated", zap.String("teacher_id", teacherID), zap.Int("days", len(days)))
	return s.repo.ListByTeacher(ctx, teacherID)
}

// WeeklyAvailability serves the wizard in embedded mode.
func (s *Service) WeeklyAvailability(ctx context.Context, teacherID string) ([]wizard.DayAvailability, error) {
	rows, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	out := make([]wizard.DayAvailability, 0, len(rows))
	for _, r := range rows {
		out = append(out, wizard.DayAvailability{DayOfWeek: r.DayOfWeek, IsActive: r.IsActive})
	}
	return out, nil
}

// AvailableSlots cuts the day's free time into hour-aligned slots of the
// requested length. Slots starting in the past are dropped.
func (s *Service) AvailableSlots(ctx context.Context, teacherID string, date time.Time, durationMinutes int) ([]wizard.TimeSlot, error) {
	if durationMinutes <= 0 {
		return nil, ErrValidation
	}

	y, m, d := date.In(s.loc).Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, s.loc)

	row, err := s.repo.GetDay(ctx, teacherID, int(day.Weekday()))
	if err != nil {
		return nil, err
	}
	if row == nil || !row.IsActive {
		return []wizard.TimeSlot{}, nil
	}

	open, err := wizard.CombineDateTime(day, row.StartTime)
	if err != nil {
		return nil, err
	}
	close, err := wizard.CombineDateTime(day, row.EndTime)
	if err != nil {
		return nil, err
	}
	if !close.After(open) {
		return []wizard.TimeSlot{}, nil
	}

	var busy []Interval
	if s.busy != nil {
		busy, err = s.busy.BusyIntervals(ctx, teacherID, open, close)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	length := time.Duration(durationMinutes) * time.Minute
	out := make([]wizard.TimeSlot, 0)
	for _, free := range subtractBusy(open, close, busy) {
		for t := nextHour(free.Start, s.loc); !t.Add(length).After(free.End); t = t.Add(time.Hour) {
			if t.Before(now) {
				continue
			}
			out = append(out, wizard.TimeSlot{
				StartTime: t.Format(wizard.TimeLayout),
				EndTime:   t.Add(length).Format(wizard.TimeLayout),
			})
		}
	}
	return out, nil
}

func nextHour(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	if t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, loc)
}

// subtractBusy returns the parts of [open, close) not covered by busy.
func subtractBusy(open, close time.Time, busy []Interval) []Interval {
	if len(busy) == 0 {
		return []Interval{{Start: open, End: close}}
	}

	sorted := append([]Interval(nil), busy...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	merged := make([]Interval, 0, len(sorted))
	for _, b := range sorted {
		if !b.End.After(open) || !b.Start.Before(close) {
			continue
		}
		if b.Start.Before(open) {
			b.Start = open
		}
		if b.End.After(close) {
			b.End = close
		}

		if len(merged) == 0 {
			merged = append(merged, b)
			continue
		}
		last := &merged[len(merged)-1]
		if !b.Start.After(last.End) {
			if b.End.After(last.End) {
				last.End = b.End
			}
		} else {
			merged = append(merged, b)
		}
	}

	cur := open
	out := make([]Interval, 0, len(merged)+1)
	for _, b := range merged {
		if b.Start.After(cur) {
			out = append(out, Interval{Start: cur, End: b.Start})
		}
		if b.End.After(cur) {
			cur = b.End
		}
	}
	if cur.Before(close) {
		out = append(out, Interval{Start: cur, End: close})
	}
	return out
}
