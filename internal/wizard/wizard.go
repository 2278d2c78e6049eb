package wizard

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultFetchTimeout = 15 * time.Second

type Options struct {
	Availability AvailabilityFetcher
	Sessions     SessionCreator
	Policy       FetchFailurePolicy
	Location     *time.Location
	Now          func() time.Time
	FetchTimeout time.Duration
	Logger       *zap.Logger
	// OnClose runs after the wizard is closed by the user or by a successful booking.
	OnClose func()
}

// Wizard walks a user through date, time, duration and confirmation for one
// teacher/skill pair. All methods are safe for concurrent use; background
// fetches resolve through the same lock as user actions.
type Wizard struct {
	mu sync.Mutex

	availability AvailabilityFetcher
	sessions     SessionCreator
	policy       FetchFailurePolicy
	loc          *time.Location
	now          func() time.Time
	fetchTimeout time.Duration
	log          *zap.Logger
	onClose      func()
	listeners    []func(Snapshot)

	step                Step
	teacher             Teacher
	skill               Skill
	weekly              []DayAvailability
	availabilityLoading bool
	slots               []TimeSlot
	slotsLoading        bool
	date                time.Time
	clock               string
	duration            int
	notice              *Notice
	submitting          bool

	// openGen changes on every open/close, slotGen on every slot fetch.
	openGen  uint64
	slotGen  uint64
	inflight sync.WaitGroup
}

func New(opts Options) *Wizard {
	w := &Wizard{
		availability: opts.Availability,
		sessions:     opts.Sessions,
		policy:       opts.Policy,
		loc:          opts.Location,
		now:          opts.Now,
		fetchTimeout: opts.FetchTimeout,
		log:          opts.Logger,
		onClose:      opts.OnClose,
		duration:     DefaultDuration,
	}
	if w.policy == "" {
		w.policy = PolicyUseDefaults
	}
	if w.loc == nil {
		w.loc = time.Local
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.fetchTimeout <= 0 {
		w.fetchTimeout = defaultFetchTimeout
	}
	if w.log == nil {
		w.log = zap.NewNop()
	}
	return w
}

// OnChange registers fn to receive a snapshot after every state change.
func (w *Wizard) OnChange(fn func(Snapshot)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Open starts a booking for teacher and skill and kicks off the weekly
// availability fetch without waiting for it.
func (w *Wizard) Open(ctx context.Context, teacher Teacher, skill Skill) {
	w.mu.Lock()
	w.resetLocked()
	w.step = StepSelectDate
	w.teacher = teacher
	w.skill = skill
	w.availabilityLoading = true
	gen := w.openGen
	w.inflight.Add(1)
	w.mu.Unlock()

	go w.fetchAvailability(detach(ctx), gen, teacher.ID)
	w.changed()
}

func (w *Wizard) fetchAvailability(ctx context.Context, gen uint64, teacherID string) {
	defer w.inflight.Done()
	ctx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
	defer cancel()

	days, err := w.availability.WeeklyAvailability(ctx, teacherID)

	w.mu.Lock()
	if gen != w.openGen {
		w.mu.Unlock()
		w.log.Debug("discarding stale availability response", zap.String("teacher_id", teacherID))
		return
	}
	w.availabilityLoading = false
	switch {
	case err != nil:
		w.log.Warn("availability fetch failed", zap.String("teacher_id", teacherID), zap.Error(err))
		w.availabilityFailedLocked(teacherID)
	case len(days) == 0:
		w.availabilityFailedLocked(teacherID)
	default:
		w.weekly = slices.Clone(days)
	}
	w.mu.Unlock()
	w.changed()
}

func (w *Wizard) availabilityFailedLocked(teacherID string) {
	if w.policy == PolicyShowError {
		w.weekly = nil
		w.notice = &Notice{Kind: NoticeError, Message: MsgAvailabilityError}
		return
	}
	w.log.Warn("using fallback availability: every day active", zap.String("teacher_id", teacherID))
	w.weekly = AllDaysActive()
}

// SelectDate validates date and, when it passes, moves to time selection and
// starts fetching that day's slots.
func (w *Wizard) SelectDate(ctx context.Context, date time.Time) error {
	w.mu.Lock()
	if err := w.requireStepLocked(StepSelectDate); err != nil {
		w.mu.Unlock()
		return err
	}
	w.notice = nil
	date = Midnight(date, w.loc)

	if IsPastDate(date, w.now()) {
		w.notice = &Notice{Kind: NoticeError, Message: MsgFutureDate}
		w.mu.Unlock()
		w.changed()
		return ErrPastDate
	}
	if !IsDateAvailable(date, w.weekly) {
		w.notice = &Notice{Kind: NoticeError, Message: MsgTeacherUnavail}
		w.mu.Unlock()
		w.changed()
		return ErrDayUnavailable
	}

	w.date = date
	w.clock = ""
	w.slots = nil
	w.slotsLoading = true
	w.step = StepSelectTime
	w.slotGen++
	gen := w.slotGen
	teacherID := w.teacher.ID
	duration := w.duration
	w.inflight.Add(1)
	w.mu.Unlock()

	go w.fetchSlots(detach(ctx), gen, teacherID, date, duration)
	w.changed()
	return nil
}

func (w *Wizard) fetchSlots(ctx context.Context, gen uint64, teacherID string, date time.Time, duration int) {
	defer w.inflight.Done()
	ctx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
	defer cancel()

	slots, err := w.availability.AvailableSlots(ctx, teacherID, date, duration)

	w.mu.Lock()
	if gen != w.slotGen || !w.date.Equal(date) {
		w.mu.Unlock()
		w.log.Debug("discarding stale slots response",
			zap.String("teacher_id", teacherID),
			zap.String("date", date.Format(DateLayout)))
		return
	}
	w.slotsLoading = false
	if err != nil {
		w.log.Warn("slots fetch failed",
			zap.String("teacher_id", teacherID),
			zap.String("date", date.Format(DateLayout)),
			zap.Error(err))
		if w.policy == PolicyShowError {
			w.slots = nil
			w.notice = &Notice{Kind: NoticeError, Message: MsgSlotsError}
		} else {
			w.log.Warn("using fallback slots 09:00-17:00", zap.String("teacher_id", teacherID))
			w.slots = DefaultSlots()
		}
	} else {
		w.slots = slices.Clone(slots)
	}
	w.mu.Unlock()
	w.changed()
}

// SelectTime picks one of the fetched slots by its start time.
func (w *Wizard) SelectTime(startTime string) error {
	w.mu.Lock()
	if err := w.requireStepLocked(StepSelectTime); err != nil {
		w.mu.Unlock()
		return err
	}
	w.notice = nil
	if !slices.ContainsFunc(w.slots, func(s TimeSlot) bool { return s.StartTime == startTime }) {
		w.mu.Unlock()
		return ErrSlotNotOffered
	}
	w.clock = startTime
	w.step = StepSelectDuration
	w.mu.Unlock()
	w.changed()
	return nil
}

func (w *Wizard) SetDuration(minutes int) error {
	w.mu.Lock()
	if err := w.requireStepLocked(StepSelectDuration); err != nil {
		w.mu.Unlock()
		return err
	}
	if !IsValidDuration(minutes) {
		w.mu.Unlock()
		return ErrInvalidDuration
	}
	w.notice = nil
	w.duration = minutes
	w.mu.Unlock()
	w.changed()
	return nil
}

// Continue moves from duration selection to the confirmation step.
func (w *Wizard) Continue() error {
	w.mu.Lock()
	if err := w.requireStepLocked(StepSelectDuration); err != nil {
		w.mu.Unlock()
		return err
	}
	w.notice = nil
	w.step = StepConfirm
	w.mu.Unlock()
	w.changed()
	return nil
}

// Back returns to the previous step without re-running validation.
func (w *Wizard) Back() error {
	w.mu.Lock()
	switch {
	case w.step == StepClosed:
		w.mu.Unlock()
		return ErrClosed
	case w.step == StepSelectDate:
		w.mu.Unlock()
		return ErrWrongStep
	case w.submitting:
		w.mu.Unlock()
		return ErrSubmitInProgress
	}
	w.notice = nil
	w.step--
	w.mu.Unlock()
	w.changed()
	return nil
}

// Close discards the draft and notifies the owner.
func (w *Wizard) Close() {
	w.mu.Lock()
	wasOpen := w.step != StepClosed
	w.resetLocked()
	w.mu.Unlock()

	if wasOpen && w.onClose != nil {
		w.onClose()
	}
	w.changed()
}

// Confirm books the drafted session. On failure the wizard stays on the
// confirmation step so the user can retry.
func (w *Wizard) Confirm(ctx context.Context) (*Confirmation, error) {
	w.mu.Lock()
	if err := w.requireStepLocked(StepConfirm); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.submitting {
		w.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	scheduledAt, err := CombineDateTime(w.date, w.clock)
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}
	tokens := CalculateTokens(w.duration, w.skill.HourlyRate())
	req := SessionRequest{
		TeacherID:       w.teacher.ID,
		Skill:           w.skill.Name,
		SkillCategory:   w.skill.Category,
		Title:           fmt.Sprintf("%s Session with %s", w.skill.Name, w.teacher.Name),
		Description:     fmt.Sprintf("Learn %s", w.skill.Name),
		ScheduledAt:     scheduledAt,
		Duration:        w.duration,
		SessionType:     SessionTypeOneOnOne,
		IsSkillExchange: false,
		TokensCharged:   tokens,
	}
	conf := &Confirmation{
		TeacherName: w.teacher.Name,
		Skill:       w.skill.Name,
		Date:        w.date.Format(DateLayout),
		Time:        w.clock,
		Duration:    w.duration,
		Tokens:      tokens,
		ScheduledAt: scheduledAt,
	}
	gen := w.openGen
	w.notice = nil
	w.submitting = true
	w.mu.Unlock()
	w.changed()

	created, err := w.sessions.CreateSession(ctx, req)

	w.mu.Lock()
	if gen != w.openGen {
		// closed while the request was in flight
		w.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
		}
		return conf, nil
	}
	w.submitting = false
	if err != nil {
		w.notice = &Notice{Kind: NoticeError, Message: userMessage(err, MsgBookFailed)}
		w.mu.Unlock()
		w.log.Warn("create session failed", zap.String("teacher_id", req.TeacherID), zap.Error(err))
		w.changed()
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	if created != nil {
		conf.SessionID = created.ID
	}
	w.resetLocked()
	w.notice = &Notice{Kind: NoticeSuccess, Message: confirmationMessage(conf), Confirmation: conf}
	w.mu.Unlock()

	w.log.Info("session booked",
		zap.String("teacher_id", req.TeacherID),
		zap.String("session_id", conf.SessionID),
		zap.Int("tokens", tokens))
	if w.onClose != nil {
		w.onClose()
	}
	w.changed()
	return conf, nil
}

func confirmationMessage(c *Confirmation) string {
	return fmt.Sprintf("Session booked: %s with %s on %s at %s, %d minutes, %s",
		c.Skill, c.TeacherName, c.ScheduledAt.Format("Mon, Jan 2 2006"), c.Time, c.Duration, FormatTokens(c.Tokens))
}

func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Wait blocks until every background fetch started so far has resolved.
func (w *Wizard) Wait() {
	w.inflight.Wait()
}

func (w *Wizard) snapshotLocked() Snapshot {
	tokens := CalculateTokens(w.duration, w.skill.HourlyRate())
	s := Snapshot{
		Step:                w.step,
		StepName:            w.step.String(),
		Teacher:             w.teacher,
		Skill:               w.skill,
		Availability:        slices.Clone(w.weekly),
		AvailabilityLoading: w.availabilityLoading,
		Slots:               slices.Clone(w.slots),
		SlotsLoading:        w.slotsLoading,
		SelectedTime:        w.clock,
		Duration:            w.duration,
		DurationOptions:     slices.Clone(DurationOptions),
		TokenCost:           tokens,
		TokenCostLabel:      FormatTokens(tokens),
		Submitting:          w.submitting,
	}
	if !w.date.IsZero() {
		s.SelectedDate = w.date.Format(DateLayout)
	}
	if w.notice != nil {
		n := *w.notice
		s.Notice = &n
	}
	return s
}

func (w *Wizard) resetLocked() {
	w.step = StepClosed
	w.teacher = Teacher{}
	w.skill = Skill{}
	w.weekly = nil
	w.availabilityLoading = false
	w.slots = nil
	w.slotsLoading = false
	w.date = time.Time{}
	w.clock = ""
	w.duration = DefaultDuration
	w.notice = nil
	w.submitting = false
	w.openGen++
	w.slotGen++
}

func (w *Wizard) requireStepLocked(step Step) error {
	if w.step == StepClosed {
		return ErrClosed
	}
	if w.step != step {
		return ErrWrongStep
	}
	if w.submitting {
		return ErrSubmitInProgress
	}
	return nil
}

func (w *Wizard) changed() {
	w.mu.Lock()
	listeners := slices.Clone(w.listeners)
	snap := w.snapshotLocked()
	w.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

func detach(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
