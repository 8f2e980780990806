package notification_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"qualify/internal/notification"
	"qualify/internal/notification/mocks"
	id "qualify/pkg/domain"
)

//go:generate mockgen -source=notification.go -destination=mocks/mocks.go -package=mocks Notifier

func TestDispatcher_Send(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	metrics := notification.NewMetrics(prometheus.NewRegistry())
	d := notification.NewDispatcher(notifier,
		notification.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		notification.WithMetrics(metrics),
	)
	notice := notification.Notice{UserID: id.NewUserID(), Kind: notification.KindAssigned}

	t.Run("delivered", func(t *testing.T) {
		notifier.EXPECT().Notify(gomock.Any(), notice).Return(nil)
		assert.True(t, d.Send(context.Background(), notice))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Sent.WithLabelValues(string(notification.KindAssigned))))
	})

	t.Run("failure is swallowed", func(t *testing.T) {
		notifier.EXPECT().Notify(gomock.Any(), notice).Return(errors.New("smtp down"))
		assert.False(t, d.Send(context.Background(), notice))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Failed.WithLabelValues(string(notification.KindAssigned))))
	})
}

func TestDispatcher_DefaultsToLog(t *testing.T) {
	var buf bytes.Buffer
	d := notification.NewDispatcher(nil, notification.WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

	ok := d.Send(context.Background(), notification.Notice{
		UserID:  id.NewUserID(),
		Kind:    notification.KindDueReminder,
		Context: map[string]string{"training_code": "GMP-101"},
	})
	assert.True(t, ok)
	assert.Contains(t, buf.String(), `"training_code":"GMP-101"`)
	assert.Contains(t, buf.String(), `"kind":"due_reminder"`)
}
