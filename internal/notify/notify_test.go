package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type writerStub struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *writerStub) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *writerStub) Close() error {
	w.closed = true
	return nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []Notice
	rejected  map[string]string
	err       error
	delay     time.Duration
}

func (r *recordingNotifier) BookingConfirmed(ctx context.Context, notice Notice) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed = append(r.confirmed, notice)
	return r.err
}

func (r *recordingNotifier) BookingRejected(ctx context.Context, notice Notice, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rejected == nil {
		r.rejected = make(map[string]string)
	}
	r.rejected[notice.BookingID] = reason
	return r.err
}

var sampleNotice = Notice{
	BookingID:   "684fd0bf9a560218492c74ca",
	RoomCode:    "VPC2_202",
	RoomName:    "Phòng VPC2_202",
	BookerName:  "TS. Trần Thị B",
	BookerEmail: "teacher1@st.cmc.edu.vn",
	Date:        "11/06/2025",
	Slot:        "Tiết 7-9",
	Purpose:     "Lớp học Lập trình Java",
}

func TestKafkaNotifierPublishesKeyedEvents(t *testing.T) {
	writer := &writerStub{}
	notifier := NewKafkaNotifierWithWriter(writer)
	notifier.newID = func() string { return "evt-1" }
	notifier.now = func() time.Time { return time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, notifier.BookingConfirmed(context.Background(), sampleNotice))
	require.NoError(t, notifier.BookingRejected(context.Background(), sampleNotice, "Phòng đang bảo trì"))
	require.Len(t, writer.messages, 2)

	first := writer.messages[0]
	assert.Equal(t, sampleNotice.BookingID, string(first.Key))

	var event Event
	require.NoError(t, json.Unmarshal(first.Value, &event))
	assert.Equal(t, EventBookingConfirmed, event.Type)
	assert.Equal(t, "evt-1", event.ID)
	assert.Equal(t, sampleNotice, event.Notice)
	assert.Empty(t, event.Reason)

	require.NoError(t, json.Unmarshal(writer.messages[1].Value, &event))
	assert.Equal(t, EventBookingRejected, event.Type)
	assert.Equal(t, "Phòng đang bảo trì", event.Reason)

	require.NoError(t, notifier.Close())
	assert.True(t, writer.closed)
}

func TestKafkaNotifierWrapsWriterErrors(t *testing.T) {
	boom := errors.New("broker unavailable")
	notifier := NewKafkaNotifierWithWriter(&writerStub{err: boom})

	err := notifier.BookingConfirmed(context.Background(), sampleNotice)
	assert.ErrorIs(t, err, boom)
}

func TestNewKafkaNotifierValidatesConfig(t *testing.T) {
	_, err := NewKafkaNotifier(nil, "bookings")
	assert.Error(t, err)

	_, err = NewKafkaNotifier([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	notifier, err := NewKafkaNotifier([]string{"localhost:9092"}, "booking-decisions")
	require.NoError(t, err)
	assert.NotNil(t, notifier)
}

func TestDispatcherDeliversInBackground(t *testing.T) {
	recorder := &recordingNotifier{}
	dispatcher := NewDispatcher(recorder, time.Second, nil)

	dispatcher.BookingConfirmed(context.Background(), sampleNotice)
	dispatcher.BookingRejected(context.Background(), sampleNotice, "Trùng lịch")
	dispatcher.Wait()

	require.Len(t, recorder.confirmed, 1)
	assert.Equal(t, sampleNotice, recorder.confirmed[0])
	assert.Equal(t, "Trùng lịch", recorder.rejected[sampleNotice.BookingID])
}

func TestDispatcherSurvivesCancelledCaller(t *testing.T) {
	recorder := &recordingNotifier{delay: 20 * time.Millisecond}
	dispatcher := NewDispatcher(recorder, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.BookingConfirmed(ctx, sampleNotice)
	cancel()
	dispatcher.Wait()

	assert.Len(t, recorder.confirmed, 1)
}

func TestDispatcherLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	dispatcher := NewDispatcher(&recordingNotifier{err: errors.New("smtp down")}, time.Second, logger)

	dispatcher.BookingConfirmed(context.Background(), sampleNotice)
	dispatcher.Wait()

	assert.True(t, strings.Contains(buf.String(), "notification failed"), buf.String())
	assert.True(t, strings.Contains(buf.String(), "smtp down"), buf.String())
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var dispatcher *Dispatcher
	dispatcher.BookingConfirmed(context.Background(), sampleNotice)
	dispatcher.Wait()
}

func TestLogNotifierWritesNotice(t *testing.T) {
	var buf bytes.Buffer
	notifier := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, notifier.BookingRejected(context.Background(), sampleNotice, "Trùng lịch"))
	out := buf.String()
	assert.Contains(t, out, "booking rejection sent")
	assert.Contains(t, out, sampleNotice.BookerEmail)
	assert.Contains(t, out, "Trùng lịch")
}
