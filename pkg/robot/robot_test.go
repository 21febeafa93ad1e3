package robot_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pflex-robotics/tcs-go/internal/mockrobot"
	"github.com/pflex-robotics/tcs-go/pkg/retry"
	"github.com/pflex-robotics/tcs-go/pkg/robot"
	"github.com/pflex-robotics/tcs-go/pkg/transport"
	"github.com/pflex-robotics/tcs-go/pkg/wire"
)

func startMock(t *testing.T, mutate func(*mockrobot.Config)) *mockrobot.Robot {
	t.Helper()
	config := mockrobot.DefaultConfig()
	config.Address = "127.0.0.1:0"
	config.WaitForEOMDelay = 20 * time.Millisecond
	if mutate != nil {
		mutate(&config)
	}
	mock, err := mockrobot.New(config)
	require.NoError(t, err)
	require.NoError(t, mock.Start(context.Background()))
	t.Cleanup(func() { mock.Stop() })
	return mock
}

func dial(t *testing.T, mock *mockrobot.Robot, hasRail bool) *robot.Robot {
	t.Helper()
	config := robot.DefaultConfig()
	config.HasRail = hasRail
	config.Timeout = 2 * time.Second
	arm, err := robot.Dial(context.Background(), mock.Addr().String(), config)
	require.NoError(t, err)
	t.Cleanup(func() { arm.Close() })
	return arm
}

func TestStartupSequence(t *testing.T) {
	mock := startMock(t, nil)
	arm := dial(t, mock, true)
	ctx := context.Background()

	assert.True(t, arm.IsConnectionAlive(ctx))
	require.NoError(t, arm.SetMode(ctx, false))
	require.NoError(t, arm.SetPower(ctx, true))
	require.NoError(t, arm.SelectRobot(ctx))
	require.NoError(t, arm.Attach(ctx))

	attached, err := arm.IsAttached(ctx)
	require.NoError(t, err)
	assert.True(t, attached)

	homed, err := arm.IsHomed(ctx)
	require.NoError(t, err)
	assert.False(t, homed)

	require.NoError(t, arm.Home(ctx))
	homed, err = arm.IsHomed(ctx)
	require.NoError(t, err)
	assert.True(t, homed)

	assert.Equal(t, 1, mock.Snapshot().SelectedRobot)
}

func TestPowerOffRejectsMotion(t *testing.T) {
	mock := startMock(t, func(c *mockrobot.Config) { c.Initial.Power = false })
	arm := dial(t, mock, true)
	ctx := context.Background()

	err := arm.Home(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, wire.ErrPowerNotEnabled))

	err = arm.MoveToCartesian(ctx, robot.EndEffectorPosition{X: 1, Y: 2, Z: 3, Pitch: 90, Roll: -180}, 1)
	assert.True(t, errors.Is(err, wire.ErrPowerNotEnabled))

	err = arm.MoveRail(ctx, 100)
	assert.True(t, errors.Is(err, wire.ErrPowerNotEnabled))
}

func TestPositionReadback(t *testing.T) {
	mock := startMock(t, nil)
	arm := dial(t, mock, true)
	ctx := context.Background()

	pose, err := arm.EndEffectorPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, robot.EndEffectorPosition{X: 300, Y: 0, Z: 150, Yaw: 0, Pitch: 90, Roll: -180}, pose)

	target := robot.EndEffectorPosition{X: 320.5, Y: -12, Z: 160, Yaw: 15, Pitch: 90, Roll: -180}
	require.NoError(t, arm.MoveToCartesian(ctx, target, 1))
	pose, err = arm.EndEffectorPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, target, pose)

	mock.Update(func(s *mockrobot.State) { s.Joints = [6]float64{100, 10.5, 20, 30, 40, 50} })
	joints, err := arm.Joints(ctx)
	require.NoError(t, err)
	assert.Equal(t, robot.JointPositions{100, 10.5, 20, 30, 40, 50}, joints)

	loc, err := arm.Location(ctx)
	require.NoError(t, err)
	assert.Len(t, loc, 7)
}

func TestQueries(t *testing.T) {
	mock := startMock(t, func(c *mockrobot.Config) {
		c.Initial.LastError = -3100
		c.Initial.MotionState = "Idle"
	})
	arm := dial(t, mock, true)
	ctx := context.Background()

	code, err := arm.LastError(ctx)
	require.NoError(t, err)
	assert.Equal(t, -3100, code)

	state, err := arm.MotionState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Idle", state)

	speed, err := arm.SystemSpeed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, speed)
}

func TestFireAndForgetCommandsKeepSessionInSync(t *testing.T) {
	mock := startMock(t, nil)
	arm := dial(t, mock, true)
	ctx := context.Background()

	require.NoError(t, arm.CreateMotionProfile(ctx, robot.DefaultMotionProfile(1)))
	require.NoError(t, arm.SetSystemSpeed(ctx, 80))
	require.NoError(t, arm.MoveToWaypoint(ctx, 1, 1))
	require.NoError(t, arm.MoveToJoints(ctx, robot.JointPositions{1, 2, 3, 4, 5, 6}))
	require.NoError(t, arm.Halt(ctx))

	// The next waited request gets its own reply, not a queued one.
	speed, err := arm.SystemSpeed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80, speed)
	assert.Equal(t, [6]float64{1, 2, 3, 4, 5, 6}, mock.Snapshot().Joints)
}

func TestFreeMode(t *testing.T) {
	mock := startMock(t, nil)
	arm := dial(t, mock, true)
	ctx := context.Background()

	require.NoError(t, arm.SetFreeMode(ctx, true))
	require.Eventually(t, func() bool { return mock.Snapshot().FreeMode }, time.Second, 10*time.Millisecond)

	require.NoError(t, arm.SetFreeMode(ctx, false))
	assert.False(t, mock.Snapshot().FreeMode)
}

func TestRail(t *testing.T) {
	mock := startMock(t, nil)
	ctx := context.Background()

	arm := dial(t, mock, true)
	require.NoError(t, arm.MoveRail(ctx, 420))
	assert.Equal(t, 420.0, mock.Snapshot().RailPosition)

	noRail := dial(t, mock, false)
	assert.ErrorIs(t, noRail.MoveRail(ctx, 10), robot.ErrNoRail)
}

func TestGripperAndPayload(t *testing.T) {
	mock := startMock(t, nil)
	arm := dial(t, mock, true)
	ctx := context.Background()

	require.NoError(t, arm.MoveGripper(ctx, 80.5, 1))
	require.NoError(t, arm.SetPayload(ctx, 25))
	require.NoError(t, arm.CreateWaypoint(ctx, robot.Waypoint{ID: 3, X: 1, Y: 2, Z: 3}))
}

func TestWaitUntilStatic(t *testing.T) {
	mock := startMock(t, func(c *mockrobot.Config) { c.WaitForEOMDelay = 300 * time.Millisecond })
	arm := dial(t, mock, true)
	ctx := context.Background()

	require.NoError(t, arm.WaitUntilStatic(ctx, 2*time.Second))

	err := arm.WaitUntilStatic(ctx, 50*time.Millisecond)
	assert.ErrorIs(t, err, transport.ErrTimeout)

	// The late waitForEOM reply does not leak into the next answer.
	time.Sleep(400 * time.Millisecond)
	speed, err := arm.SystemSpeed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, speed)
}

func TestWaitForHomed(t *testing.T) {
	mock := startMock(t, nil)
	config := robot.DefaultConfig()
	config.Poll = retry.Policy{Backoff: retry.BackoffConfig{Initial: 10 * time.Millisecond, Max: 20 * time.Millisecond}}
	arm, err := robot.Dial(context.Background(), mock.Addr().String(), config)
	require.NoError(t, err)
	defer arm.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		mock.Update(func(s *mockrobot.State) { s.Homed = true })
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, arm.WaitForHomed(ctx))
}

func TestWaitForHomedRespectsContext(t *testing.T) {
	mock := startMock(t, nil)
	arm := dial(t, mock, true)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, arm.WaitForHomed(ctx), context.DeadlineExceeded)
}

func TestCloseEndsSession(t *testing.T) {
	mock := startMock(t, nil)
	arm := dial(t, mock, true)

	require.NoError(t, arm.Close())
	require.NoError(t, arm.Close())
	assert.False(t, arm.IsConnectionAlive(context.Background()))

	require.Eventually(t, func() bool { return mock.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestDialFailure(t *testing.T) {
	config := robot.DefaultConfig()
	config.Timeout = 500 * time.Millisecond
	_, err := robot.Dial(context.Background(), "127.0.0.1:1", config)

	var connErr *transport.ConnectionError
	assert.ErrorAs(t, err, &connErr)
}
