package cli

import (
	"bytes"
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rileyhilliard/labdash/internal/errors"
	"github.com/rileyhilliard/labdash/internal/logger"
	"github.com/rileyhilliard/labdash/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    telemetry.Kind
		wantErr bool
	}{
		{"gpu", telemetry.KindGPU, false},
		{"host", telemetry.KindHost, false},
		{"disk", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseKind(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSendDeliversDatagramsToListener(t *testing.T) {
	listener, err := telemetry.ListenUDP("127.0.0.1", 0, telemetry.KindGPU, 2, 2*time.Second)
	require.NoError(t, err)
	defer listener.Close()

	src := telemetry.SourceFunc(func(context.Context) (telemetry.Reading, error) {
		return telemetry.Reading{Pairs: []telemetry.Pair{{Primary: 42, Secondary: 65}, {Primary: 10, Secondary: 40}}}, nil
	})

	var out bytes.Buffer
	err = Send(context.Background(), SendOptions{
		Kind:   telemetry.KindGPU,
		To:     listener.Addr().String(),
		Count:  2,
		Source: src,
		Out:    &out,
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		reading, err := listener.Acquire(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []telemetry.Pair{{Primary: 42, Secondary: 65}, {Primary: 10, Secondary: 40}}, reading.Pairs)
	}
	assert.Contains(t, out.String(), `"gpus"`)
}

func TestSendHostPayload(t *testing.T) {
	listener, err := telemetry.ListenUDP("127.0.0.1", 0, telemetry.KindHost, 1, 2*time.Second)
	require.NoError(t, err)
	defer listener.Close()

	procs := []telemetry.Process{{User: "alice", CPUPercent: 99, MemoryPercent: 3.2, PID: 4242, Name: "python"}}
	src := telemetry.SourceFunc(func(context.Context) (telemetry.Reading, error) {
		return telemetry.Reading{Pairs: []telemetry.Pair{{Primary: 12.5, Secondary: 40.1}}, Processes: procs}, nil
	})

	require.NoError(t, Send(context.Background(), SendOptions{
		Kind:   telemetry.KindHost,
		To:     listener.Addr().String(),
		Count:  1,
		Source: src,
	}))

	reading, err := listener.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []telemetry.Pair{{Primary: 12.5, Secondary: 40.1}}, reading.Pairs)
	assert.Equal(t, procs, reading.Processes)
}

func TestSendSkipsFailedReadings(t *testing.T) {
	listener, err := telemetry.ListenUDP("127.0.0.1", 0, telemetry.KindGPU, 1, 2*time.Second)
	require.NoError(t, err)
	defer listener.Close()

	var calls atomic.Int32
	src := telemetry.SourceFunc(func(context.Context) (telemetry.Reading, error) {
		if calls.Add(1) == 1 {
			return telemetry.Reading{}, telemetry.ErrTimeout
		}
		return telemetry.Reading{Pairs: []telemetry.Pair{{Primary: 5, Secondary: 50}}}, nil
	})

	log := logger.NewBufferLogger()
	require.NoError(t, Send(context.Background(), SendOptions{
		Kind:     telemetry.KindGPU,
		To:       listener.Addr().String(),
		Interval: time.Millisecond,
		Count:    2,
		Source:   src,
		Logger:   log,
	}))

	assert.Equal(t, 1, log.Count("warn"))
	reading, err := listener.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.0, reading.Pairs[0].Primary)
}

func TestSendLogsToDefaultLogger(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	prev := logger.Default()
	defer logger.SetDefault(prev)
	log := logger.NewBufferLogger()
	logger.SetDefault(log)

	require.NoError(t, Send(context.Background(), SendOptions{
		Kind:   telemetry.KindGPU,
		To:     pc.LocalAddr().String(),
		Count:  1,
		Source: telemetry.SourceFunc(func(context.Context) (telemetry.Reading, error) { return telemetry.Reading{}, telemetry.ErrDecode }),
	}))

	assert.Equal(t, 1, log.Count("warn"))
}

func TestSendStopsOnCancel(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	src := telemetry.SourceFunc(func(context.Context) (telemetry.Reading, error) {
		return telemetry.Reading{Pairs: []telemetry.Pair{{Primary: 1, Secondary: 30}}}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Send(ctx, SendOptions{
			Kind:     telemetry.KindGPU,
			To:       pc.LocalAddr().String(),
			Interval: time.Hour,
			Source:   src,
		})
	}()

	buf := make([]byte, telemetry.MaxDatagramSize)
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = pc.ReadFrom(buf)
	require.NoError(t, err, "first datagram is sent immediately")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return after cancel")
	}
}

func TestSendBadDestination(t *testing.T) {
	err := Send(context.Background(), SendOptions{
		Kind:   telemetry.KindGPU,
		To:     "not-an-address",
		Count:  1,
		Source: telemetry.SourceFunc(func(context.Context) (telemetry.Reading, error) { return telemetry.Reading{}, nil }),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTelemetry))
}
