package events

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"evchargenet/pkg/apperror"
	"evchargenet/pkg/config"
)

type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	called := m.Called()
	return pgconn.CommandTag{}, called.Error(0)
}
func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *mockDB) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	return nil, nil
}
func (m *mockDB) Close()                     {}
func (m *mockDB) Ping(ctx context.Context) error { return nil }

func TestRecorder_FlushesOnBatchSize(t *testing.T) {
	db := new(mockDB)
	db.On("Exec").Return(nil)

	r := New(db, config.EventsConfig{
		Enabled:     true,
		BufferSize:  10,
		BatchSize:   2,
		FlushPeriod: time.Hour,
	})

	r.Record(context.Background(), Event{Kind: KindBreakerOpened, Severity: apperror.SeverityWarning, Component: "predictgw"})
	r.Record(context.Background(), Event{Kind: KindBreakerClosed, Severity: apperror.SeverityWarning, Component: "predictgw"})

	r.Close()

	db.AssertNumberOfCalls(t, "Exec", 2)
}

func TestRecorder_FlushesOnTimer(t *testing.T) {
	db := new(mockDB)
	db.On("Exec").Return(nil)

	r := New(db, config.EventsConfig{
		Enabled:     true,
		BufferSize:  10,
		BatchSize:   100,
		FlushPeriod: 10 * time.Millisecond,
	})

	r.Record(context.Background(), Event{Kind: KindColdStart, Component: "optimizer", StationID: "st-1"})

	time.Sleep(50 * time.Millisecond)
	r.Close()

	db.AssertNumberOfCalls(t, "Exec", 1)
}

func TestNoopRecorder(t *testing.T) {
	r := New(nil, config.EventsConfig{Enabled: false})
	r.Record(context.Background(), Event{Kind: KindOverload})
	r.Close()
}
