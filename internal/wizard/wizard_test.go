package wizard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAvailability struct {
	mock.Mock
}

func (m *MockAvailability) WeeklyAvailability(ctx context.Context, teacherID string) ([]DayAvailability, error) {
	args := m.Called(ctx, teacherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]DayAvailability), args.Error(1)
}

func (m *MockAvailability) AvailableSlots(ctx context.Context, teacherID string, date time.Time, durationMinutes int) ([]TimeSlot, error) {
	args := m.Called(ctx, teacherID, date, durationMinutes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]TimeSlot), args.Error(1)
}

type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) CreateSession(ctx context.Context, req SessionRequest) (*CreatedSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CreatedSession), args.Error(1)
}

type backendMessageError struct{ msg string }

func (e *backendMessageError) Error() string       { return "backend: " + e.msg }
func (e *backendMessageError) UserMessage() string { return e.msg }

var testLoc = time.FixedZone("UTC+3", 3*3600)

// Wednesday, 14 Oct 2026, 08:30 local.
var testNow = time.Date(2026, 10, 14, 8, 30, 0, 0, testLoc)

func day(offset int) time.Time {
	return time.Date(2026, 10, 14+offset, 0, 0, 0, 0, testLoc)
}

func sameDate(d time.Time) interface{} {
	return mock.MatchedBy(func(got time.Time) bool { return got.Equal(d) })
}

type testHarness struct {
	wizard   *Wizard
	avail    *MockAvailability
	sessions *MockSessions
	closed   *atomic.Int32
}

func newHarness(t *testing.T, policy FetchFailurePolicy) *testHarness {
	t.Helper()
	h := &testHarness{
		avail:    new(MockAvailability),
		sessions: new(MockSessions),
		closed:   new(atomic.Int32),
	}
	h.wizard = New(Options{
		Availability: h.avail,
		Sessions:     h.sessions,
		Policy:       policy,
		Location:     testLoc,
		Now:          func() time.Time { return testNow },
		OnClose:      func() { h.closed.Add(1) },
	})
	return h
}

var (
	ana    = Teacher{ID: "t1", Name: "Ana"}
	guitar = Skill{Name: "Guitar", Category: "Music", TokensPerHour: 40}
)

// advanceToConfirm opens the wizard for Ana/Guitar and walks it to step 4 on
// the given date with a 10:00 slot and the given duration.
func (h *testHarness) advanceToConfirm(t *testing.T, date time.Time, duration int) {
	t.Helper()
	ctx := context.Background()
	h.wizard.Open(ctx, ana, guitar)
	h.wizard.Wait()
	require.NoError(t, h.wizard.SelectDate(ctx, date))
	h.wizard.Wait()
	require.NoError(t, h.wizard.SelectTime("10:00"))
	require.NoError(t, h.wizard.SetDuration(duration))
	require.NoError(t, h.wizard.Continue())
	require.Equal(t, StepConfirm, h.wizard.Snapshot().Step)
}

func TestWizard_EndToEndBooking(t *testing.T) {
	h := newHarness(t, PolicyUseDefaults)
	ctx := context.Background()
	today := day(0)

	h.avail.On("WeeklyAvailability", mock.Anything, "t1").
		Return([]DayAvailability{{DayOfWeek: int(today.Weekday()), IsActive: true}}, nil)
	h.avail.On("AvailableSlots", mock.Anything, "t1", sameDate(today), 60).
		Return([]TimeSlot{{StartTime: "10:00", EndTime: "11:00"}}, nil)
	h.sessions.On("CreateSession", mock.Anything, mock.Anything).
		Return(&CreatedSession{ID: "s1", Status: "scheduled"}, nil).Once()

	h.wizard.Open(ctx, ana, guitar)
	snap := h.wizard.Snapshot()
	assert.Equal(t, StepSelectDate, snap.Step)

	h.wizard.Wait()
	snap = h.wizard.Snapshot()
	assert.False(t, snap.AvailabilityLoading)
	require.Len(t, snap.Availability, 1)

	require.NoError(t, h.wizard.SelectDate(ctx, today))
	assert.Equal(t, StepSelectTime, h.wizard.Snapshot().Step)
	h.wizard.Wait()
	assert.Equal(t, []TimeSlot{{StartTime: "10:00", EndTime: "11:00"}}, h.wizard.Snapshot().Slots)

	require.NoError(t, h.wizard.SelectTime("10:00"))
	assert.Equal(t, StepSelectDuration, h.wizard.Snapshot().Step)

	require.NoError(t, h.wizard.SetDuration(90))
	assert.Equal(t, "60 tokens", h.wizard.Snapshot().TokenCostLabel)

	require.NoError(t, h.wizard.Continue())
	snap = h.wizard.Snapshot()
	assert.Equal(t, StepConfirm, snap.Step)
	assert.Equal(t, "Ana", snap.Teacher.Name)
	assert.Equal(t, "Guitar", snap.Skill.Name)
	assert.Equal(t, "60 tokens", snap.TokenCostLabel)

	conf, err := h.wizard.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1", conf.SessionID)
	assert.Equal(t, 60, conf.Tokens)

	h.sessions.AssertNumberOfCalls(t, "CreateSession", 1)
	req := h.sessions.Calls[0].Arguments.Get(1).(SessionRequest)
	assert.Equal(t, "t1", req.TeacherID)
	assert.Equal(t, "Guitar", req.Skill)
	assert.Equal(t, "Music", req.SkillCategory)
	assert.Equal(t, "Guitar Session with Ana", req.Title)
	assert.Equal(t, "Learn Guitar", req.Description)
	assert.Equal(t, 90, req.Duration)
	assert.Equal(t, 60, req.TokensCharged)
	assert.Equal(t, "one-on-one", req.SessionType)
	assert.False(t, req.IsSkillExchange)
	assert.True(t, req.ScheduledAt.Equal(time.Date(2026, 10, 14, 10, 0, 0, 0, testLoc)))

	snap = h.wizard.Snapshot()
	assert.Equal(t, StepClosed, snap.Step)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, NoticeSuccess, snap.Notice.Kind)
	assert.Contains(t, snap.Notice.Message, "Guitar")
	assert.Contains(t, snap.Notice.Message, "60 tokens")
	assert.Equal(t, int32(1), h.closed.Load())
}

func TestWizard_SelectDate_RejectsPastDate(t *testing.T) {
	h := newHarness(t, PolicyUseDefaults)
	ctx := context.Background()
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return(AllDaysActive(), nil)

	h.wizard.Open(ctx, ana, guitar)
	h.wizard.Wait()

	err := h.wizard.SelectDate(ctx, day(-1))
	assert.ErrorIs(t, err, ErrPastDate)

	snap := h.wizard.Snapshot()
	assert.Equal(t, StepSelectDate, snap.Step)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, MsgFutureDate, snap.Notice.Message)
	h.avail.AssertNotCalled(t, "AvailableSlots", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWizard_SelectDate_AcceptsTodayAndFuture(t *testing.T) {
	for _, offset := range []int{0, 1, 30} {
		h := newHarness(t, PolicyUseDefaults)
		ctx := context.Background()
		h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return(AllDaysActive(), nil)
		h.avail.On("AvailableSlots", mock.Anything, "t1", mock.Anything, 60).Return([]TimeSlot{}, nil)

		h.wizard.Open(ctx, ana, guitar)
		h.wizard.Wait()

		require.NoError(t, h.wizard.SelectDate(ctx, day(offset)), "offset %d", offset)
		assert.Equal(t, StepSelectTime, h.wizard.Snapshot().Step)
		h.wizard.Wait()
	}
}

func TestWizard_SelectDate_AvailabilityGating(t *testing.T) {
	h := newHarness(t, PolicyUseDefaults)
	ctx := context.Background()
	availability := []DayAvailability{
		{DayOfWeek: 0, IsActive: false},
		{DayOfWeek: 1, IsActive: false},
		{DayOfWeek: 2, IsActive: true},
		{DayOfWeek: 3, IsActive: false},
		{DayOfWeek: 4, IsActive: false},
		{DayOfWeek: 5, IsActive: false},
		{DayOfWeek: 6, IsActive: false},
	}
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return(availability, nil)
	h.avail.On("AvailableSlots", mock.Anything, "t1", mock.Anything, 60).Return([]TimeSlot{}, nil)

	h.wizard.Open(ctx, ana, guitar)
	h.wizard.Wait()

	// 15..19 Oct are Thursday..Monday, 14 Oct is today (Wednesday).
	for offset := 0; offset <= 5; offset++ {
		err := h.wizard.SelectDate(ctx, day(offset))
		assert.ErrorIs(t, err, ErrDayUnavailable, "offset %d", offset)
		snap := h.wizard.Snapshot()
		require.NotNil(t, snap.Notice)
		assert.Equal(t, MsgTeacherUnavail, snap.Notice.Message)
		assert.Equal(t, StepSelectDate, snap.Step)
	}

	tuesday := day(6)
	require.Equal(t, time.Tuesday, tuesday.Weekday())
	require.NoError(t, h.wizard.SelectDate(ctx, tuesday))
	assert.Equal(t, StepSelectTime, h.wizard.Snapshot().Step)
	assert.Nil(t, h.wizard.Snapshot().Notice)
	h.wizard.Wait()
}

func TestWizard_SelectDate_BeforeAvailabilityResolves(t *testing.T) {
	h := newHarness(t, PolicyUseDefaults)
	ctx := context.Background()
	release := make(chan struct{})
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").
		Run(func(mock.Arguments) { <-release }).
		Return(AllDaysActive(), nil)

	h.wizard.Open(ctx, ana, guitar)
	snap := h.wizard.Snapshot()
	assert.True(t, snap.AvailabilityLoading)
	assert.Empty(t, snap.Availability)

	assert.ErrorIs(t, h.wizard.SelectDate(ctx, day(1)), ErrDayUnavailable)

	close(release)
	h.wizard.Wait()
	assert.Len(t, h.wizard.Snapshot().Availability, 7)
}

func TestWizard_CloseResetsDraft(t *testing.T) {
	h := newHarness(t, PolicyUseDefaults)
	ctx := context.Background()
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return(AllDaysActive(), nil)
	h.avail.On("AvailableSlots", mock.Anything, "t1", mock.Anything, 60).
		Return([]TimeSlot{{StartTime: "10:00", EndTime: "11:00"}}, nil)

	h.advanceToConfirm(t, day(1), 120)

	h.wizard.Close()
	snap := h.wizard.Snapshot()
	assert.Equal(t, StepClosed, snap.Step)
	assert.Equal(t, int32(1), h.closed.Load())

	h.wizard.Open(ctx, ana, guitar)
	snap = h.wizard.Snapshot()
	assert.Equal(t, StepSelectDate, snap.Step)
	assert.Equal(t, 60, snap.Duration)
	assert.Empty(t, snap.SelectedDate)
	assert.Empty(t, snap.SelectedTime)
	h.wizard.Wait()

	h.sessions.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
}

func TestWizard_SlotsFallbackOnError(t *testing.T) {
	h := newHarness(t, PolicyUseDefaults)
	ctx := context.Background()
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return(AllDaysActive(), nil)
	h.avail.On("AvailableSlots", mock.Anything, "t1", mock.Anything, 60).
		Return(nil, errors.New("connection refused"))

	h.wizard.Open(ctx, ana, guitar)
	h.wizard.Wait()
	require.NoError(t, h.wizard.SelectDate(ctx, day(1)))
	h.wizard.Wait()

	snap := h.wizard.Snapshot()
	assert.False(t, snap.SlotsLoading)
	require.Len(t, snap.Slots, 8)
	for i, s := range snap.Slots {
		assert.Equal(t, DefaultSlots()[i], s)
	}
	assert.Equal(t, "09:00", snap.Slots[0].StartTime)
	assert.Equal(t, "17:00", snap.Slots[7].EndTime)
	assert.Nil(t, snap.Notice)
}

func TestWizard_AvailabilityFallback(t *testing.T) {
	cases := []struct {
		name   string
		result []DayAvailability
		err    error
	}{
		{name: "error", err: errors.New("timeout")},
		{name: "empty", result: []DayAvailability{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, PolicyUseDefaults)
			h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return(tc.result, tc.err)

			h.wizard.Open(context.Background(), ana, guitar)
			h.wizard.Wait()

			snap := h.wizard.Snapshot()
			assert.Equal(t, AllDaysActive(), snap.Availability)
			assert.Nil(t, snap.Notice)
		})
	}
}

func TestWizard_ShowErrorPolicy(t *testing.T) {
	h := newHarness(t, PolicyShowError)
	ctx := context.Background()
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return(nil, errors.New("boom"))

	h.wizard.Open(ctx, ana, guitar)
	h.wizard.Wait()

	snap := h.wizard.Snapshot()
	assert.Empty(t, snap.Availability)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, NoticeError, snap.Notice.Kind)
	assert.Equal(t, MsgAvailabilityError, snap.Notice.Message)

	assert.ErrorIs(t, h.wizard.SelectDate(ctx, day(1)), ErrDayUnavailable)
}

func TestWizard_ShowErrorPolicy_Slots(t *testing.T) {
	h := newHarness(t, PolicyShowError)
	ctx := context.Background()
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return(AllDaysActive(), nil)
	h.avail.On("AvailableSlots", mock.Anything, "t1", mock.Anything, 60).Return(nil, errors.New("boom"))

	h.wizard.Open(ctx, ana, guitar)
	h.wizard.Wait()
	require.NoError(t, h.wizard.SelectDate(ctx, day(1)))
	h.wizard.Wait()

	snap := h.wizard.Snapshot()
	assert.Empty(t, snap.Slots)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, MsgSlotsError, snap.Notice.Message)
	assert.ErrorIs(t, h.wizard.SelectTime("09:00"), ErrSlotNotOffered)
}

func TestWizard_DiscardsStaleSlots(t *testing.T) {
	h := newHarness(t, PolicyUseDefaults)
	ctx := context.Background()
	first, second := day(1), day(2)
	release := make(chan struct{})

	h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return(AllDaysActive(), nil)
	h.avail.On("AvailableSlots", mock.Anything, "t1", sameDate(first), 60).
		Run(func(mock.Arguments) { <-release }).
		Return([]TimeSlot{{StartTime: "08:00", EndTime: "09:00"}}, nil)
	h.avail.On("AvailableSlots", mock.Anything, "t1", sameDate(second), 60).
		Return([]TimeSlot{{StartTime: "14:00", EndTime: "15:00"}}, nil)

	h.wizard.Open(ctx, ana, guitar)
	h.wizard.Wait()

	require.NoError(t, h.wizard.SelectDate(ctx, first))
	require.NoError(t, h.wizard.Back())
	require.NoError(t, h.wizard.SelectDate(ctx, second))

	require.Eventually(t, func() bool { return !h.wizard.Snapshot().SlotsLoading }, time.Second, 5*time.Millisecond)
	close(release)
	h.wizard.Wait()

	snap := h.wizard.Snapshot()
	assert.Equal(t, second.Format(DateLayout), snap.SelectedDate)
	assert.Equal(t, []TimeSlot{{StartTime: "14:00", EndTime: "15:00"}}, snap.Slots)
}

func TestWizard_DiscardsAvailabilityFromPreviousOpen(t *testing.T) {
	h := newHarness(t, PolicyUseDefaults)
	ctx := context.Background()
	release := make(chan struct{})
	bob := Teacher{ID: "t2", Name: "Bob"}

	h.avail.On("WeeklyAvailability", mock.Anything, "t1").
		Run(func(mock.Arguments) { <-release }).
		Return(AllDaysActive(), nil)
	h.avail.On("WeeklyAvailability", mock.Anything, "t2").
		Return([]DayAvailability{{DayOfWeek: 5, IsActive: true}}, nil)

	h.wizard.Open(ctx, ana, guitar)
	h.wizard.Close()
	h.wizard.Open(ctx, bob, guitar)

	require.Eventually(t, func() bool { return !h.wizard.Snapshot().AvailabilityLoading }, time.Second, 5*time.Millisecond)
	close(release)
	h.wizard.Wait()

	snap := h.wizard.Snapshot()
	assert.Equal(t, "Bob", snap.Teacher.Name)
	assert.Equal(t, []DayAvailability{{DayOfWeek: 5, IsActive: true}}, snap.Availability)
}

func TestWizard_SelectTime_RequiresOfferedSlot(t *testing.T) {
	h := newHarness(t, PolicyUseDefaults)
	ctx := context.Background()
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return(AllDaysActive(), nil)
	h.avail.On("AvailableSlots", mock.Anything, "t1", mock.Anything, 60).
		Return([]TimeSlot{{StartTime: "10:00", EndTime: "11:00"}}, nil)

	h.wizard.Open(ctx, ana, guitar)
	h.wizard.Wait()
	require.NoError(t, h.wizard.SelectDate(ctx, day(1)))
	h.wizard.Wait()

	assert.ErrorIs(t, h.wizard.SelectTime("11:00"), ErrSlotNotOffered)
	assert.Equal(t, StepSelectTime, h.wizard.Snapshot().Step)
}

func TestWizard_DurationRules(t *testing.T) {
	h := newHarness(t, PolicyUseDefaults)
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return(AllDaysActive(), nil)
	h.avail.On("AvailableSlots", mock.Anything, "t1", mock.Anything, 60).
		Return([]TimeSlot{{StartTime: "10:00", EndTime: "11:00"}}, nil)

	h.wizard.Open(context.Background(), ana, guitar)
	h.wizard.Wait()
	assert.ErrorIs(t, h.wizard.SetDuration(90), ErrWrongStep)

	require.NoError(t, h.wizard.SelectDate(context.Background(), day(1)))
	h.wizard.Wait()
	require.NoError(t, h.wizard.SelectTime("10:00"))

	assert.Equal(t, 60, h.wizard.Snapshot().Duration)
	assert.ErrorIs(t, h.wizard.SetDuration(45), ErrInvalidDuration)
	require.NoError(t, h.wizard.SetDuration(120))
	assert.Equal(t, 120, h.wizard.Snapshot().Duration)
	assert.Equal(t, 80, h.wizard.Snapshot().TokenCost)
}

func TestWizard_BackNavigation(t *testing.T) {
	h := newHarness(t, PolicyUseDefaults)
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return(AllDaysActive(), nil)
	h.avail.On("AvailableSlots", mock.Anything, "t1", mock.Anything, 60).
		Return([]TimeSlot{{StartTime: "10:00", EndTime: "11:00"}}, nil)

	h.advanceToConfirm(t, day(1), 90)

	require.NoError(t, h.wizard.Back())
	assert.Equal(t, StepSelectDuration, h.wizard.Snapshot().Step)
	require.NoError(t, h.wizard.Back())
	assert.Equal(t, StepSelectTime, h.wizard.Snapshot().Step)
	require.NoError(t, h.wizard.Back())
	assert.Equal(t, StepSelectDate, h.wizard.Snapshot().Step)
	assert.ErrorIs(t, h.wizard.Back(), ErrWrongStep)

	snap := h.wizard.Snapshot()
	assert.Equal(t, 90, snap.Duration, "back keeps the draft")
	assert.Equal(t, "10:00", snap.SelectedTime)
}

func TestWizard_ActionsOnClosedWizard(t *testing.T) {
	h := newHarness(t, PolicyUseDefaults)

	assert.ErrorIs(t, h.wizard.SelectDate(context.Background(), day(1)), ErrClosed)
	assert.ErrorIs(t, h.wizard.SelectTime("10:00"), ErrClosed)
	assert.ErrorIs(t, h.wizard.Back(), ErrClosed)
	_, err := h.wizard.Confirm(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	h.wizard.Close()
	assert.Equal(t, int32(0), h.closed.Load(), "closing a closed wizard does not notify")
}

func TestWizard_ConfirmFailureKeepsConfirmStep(t *testing.T) {
	h := newHarness(t, PolicyUseDefaults)
	ctx := context.Background()
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return(AllDaysActive(), nil)
	h.avail.On("AvailableSlots", mock.Anything, "t1", mock.Anything, 60).
		Return([]TimeSlot{{StartTime: "10:00", EndTime: "11:00"}}, nil)
	h.sessions.On("CreateSession", mock.Anything, mock.Anything).
		Return(nil, &backendMessageError{msg: "Insufficient token balance"}).Once()
	h.sessions.On("CreateSession", mock.Anything, mock.Anything).
		Return(nil, errors.New("dial tcp: connection refused")).Once()
	h.sessions.On("CreateSession", mock.Anything, mock.Anything).
		Return(&CreatedSession{ID: "s2"}, nil).Once()

	h.advanceToConfirm(t, day(1), 60)

	_, err := h.wizard.Confirm(ctx)
	assert.ErrorIs(t, err, ErrSubmitFailed)
	snap := h.wizard.Snapshot()
	assert.Equal(t, StepConfirm, snap.Step)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, "Insufficient token balance", snap.Notice.Message)

	_, err = h.wizard.Confirm(ctx)
	assert.ErrorIs(t, err, ErrSubmitFailed)
	snap = h.wizard.Snapshot()
	assert.Equal(t, StepConfirm, snap.Step)
	assert.Equal(t, MsgBookFailed, snap.Notice.Message)
	assert.Equal(t, int32(0), h.closed.Load())

	conf, err := h.wizard.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s2", conf.SessionID)
	assert.Equal(t, 40, conf.Tokens)
	h.sessions.AssertNumberOfCalls(t, "CreateSession", 3)
	assert.Equal(t, int32(1), h.closed.Load())
}

func TestWizard_ConfirmRejectsConcurrentSubmit(t *testing.T) {
	h := newHarness(t, PolicyUseDefaults)
	ctx := context.Background()
	release := make(chan struct{})
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return(AllDaysActive(), nil)
	h.avail.On("AvailableSlots", mock.Anything, "t1", mock.Anything, 60).
		Return([]TimeSlot{{StartTime: "10:00", EndTime: "11:00"}}, nil)
	h.sessions.On("CreateSession", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(&CreatedSession{ID: "s3"}, nil).Once()

	h.advanceToConfirm(t, day(1), 60)

	done := make(chan error, 1)
	go func() {
		_, err := h.wizard.Confirm(ctx)
		done <- err
	}()
	require.Eventually(t, func() bool { return h.wizard.Snapshot().Submitting }, time.Second, 5*time.Millisecond)

	_, err := h.wizard.Confirm(ctx)
	assert.ErrorIs(t, err, ErrSubmitInProgress)
	assert.ErrorIs(t, h.wizard.Back(), ErrSubmitInProgress)

	close(release)
	require.NoError(t, <-done)
	h.sessions.AssertNumberOfCalls(t, "CreateSession", 1)
}

func TestWizard_OnChangeReceivesSnapshots(t *testing.T) {
	h := newHarness(t, PolicyUseDefaults)
	h.avail.On("WeeklyAvailability", mock.Anything, "t1").Return(AllDaysActive(), nil)

	var got []Snapshot
	updates := make(chan Snapshot, 8)
	h.wizard.OnChange(func(s Snapshot) { updates <- s })

	h.wizard.Open(context.Background(), ana, guitar)
	h.wizard.Wait()

	for len(got) < 2 {
		select {
		case s := <-updates:
			got = append(got, s)
		case <-time.After(time.Second):
			t.Fatalf("expected two updates, got %d", len(got))
		}
	}
	resolved := false
	for _, s := range got {
		assert.Equal(t, StepSelectDate, s.Step)
		if len(s.Availability) == 7 && !s.AvailabilityLoading {
			resolved = true
		}
	}
	assert.True(t, resolved, "one update carries the fetched availability")
}
