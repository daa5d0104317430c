package limiter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeRow struct{ scan func(dest ...any) error }

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeDB struct {
	qrErr        error
	blockedUntil time.Time
	failsRet     int

	lastArgs []any
	execSQL  []string
	execErr  error
}

var _ Querier = (*fakeDB)(nil)

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.lastArgs = args
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastArgs = args
	switch {
	case strings.Contains(sql, "SELECT blocked_until"):
		return fakeRow{scan: func(dest ...any) error {
			if f.qrErr != nil {
				return f.qrErr
			}
			*(dest[0].(*time.Time)) = f.blockedUntil
			return nil
		}}
	case strings.Contains(sql, "RETURNING fail_count"):
		return fakeRow{scan: func(dest ...any) error {
			if f.qrErr != nil {
				return f.qrErr
			}
			*(dest[0].(*int)) = f.failsRet
			return nil
		}}
	}
	return fakeRow{scan: func(...any) error { return errors.New("unexpected query") }}
}

var testPolicy = Policy{Window: 5 * time.Minute, MaxFails: 5, BlockFor: 10 * time.Minute}

func TestPG_Allow(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		db      *fakeDB
		allowed bool
		wait    time.Duration
		wantErr bool
	}{
		{"no row", &fakeDB{qrErr: pgx.ErrNoRows}, true, 0, false},
		{"blocked", &fakeDB{blockedUntil: now.Add(3 * time.Minute)}, false, 3 * time.Minute, false},
		{"block expired", &fakeDB{blockedUntil: now.Add(-time.Minute)}, true, 0, false},
		{"epoch", &fakeDB{}, true, 0, false},
		{"db error", &fakeDB{qrErr: errors.New("db boom")}, false, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			l := NewPG(tc.db, testPolicy)
			l.now = func() time.Time { return now }
			ok, wait, err := l.Allow(context.Background(), " Admin@Example.com", []byte("h"))
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.allowed, ok)
			require.Equal(t, tc.wait, wait)
			require.Equal(t, "admin@example.com", tc.db.lastArgs[0])
		})
	}
}

func TestPG_Success(t *testing.T) {
	t.Parallel()
	db := &fakeDB{}
	require.NoError(t, NewPG(db, testPolicy).Success(context.Background(), "a@example.com", []byte("h")))
	require.Len(t, db.execSQL, 1)
	require.Contains(t, db.execSQL[0], "INSERT INTO auth_limiter")

	db = &fakeDB{execErr: errors.New("exec fail")}
	require.Error(t, NewPG(db, testPolicy).Success(context.Background(), "a@example.com", []byte("h")))
}

func TestPG_Failure(t *testing.T) {
	t.Parallel()

	db := &fakeDB{failsRet: 2}
	blocked, wait, err := NewPG(db, testPolicy).Failure(context.Background(), "a@example.com", []byte("h"))
	require.NoError(t, err)
	require.False(t, blocked)
	require.Zero(t, wait)
	require.Empty(t, db.execSQL)

	db = &fakeDB{failsRet: 5}
	blocked, wait, err = NewPG(db, testPolicy).Failure(context.Background(), "a@example.com", []byte("h"))
	require.NoError(t, err)
	require.True(t, blocked)
	require.Equal(t, 10*time.Minute, wait)
	require.Len(t, db.execSQL, 1)
	require.Contains(t, db.execSQL[0], "UPDATE auth_limiter SET blocked_until")

	db = &fakeDB{qrErr: errors.New("query error")}
	_, _, err = NewPG(db, testPolicy).Failure(context.Background(), "a@example.com", []byte("h"))
	require.Error(t, err)
}

func TestHashIP(t *testing.T) {
	t.Parallel()
	require.Equal(t, HashIP("1.2.3.4:123"), HashIP("1.2.3.4:456"), "port is ignored")
	require.Equal(t, HashIP("[::1]:80"), HashIP("::1"))
	require.NotEqual(t, HashIP("1.2.3.4:123"), HashIP("5.6.7.8:123"))
	require.Len(t, HashIP("1.2.3.4"), 32)
}
