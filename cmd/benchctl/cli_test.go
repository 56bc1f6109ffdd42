package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	api "github.com/nixpig/benchworker/api/v1"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeClient struct {
	started  *api.StartJobRequest
	killed   []int32
	killAll  bool
	result   *api.JobResultResponse
	startErr error
}

func (f *fakeClient) StartJob(
	_ context.Context,
	in *api.StartJobRequest,
	_ ...grpc.CallOption,
) (*api.StartJobResponse, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}

	f.started = in

	return &api.StartJobResponse{SlotID: 1}, nil
}

func (f *fakeClient) Status(
	context.Context,
	*api.StatusRequest,
	...grpc.CallOption,
) (*api.StatusResponse, error) {
	return &api.StatusResponse{Slots: []api.SlotStatus{
		{
			SlotID:     1,
			State:      "Running",
			Background: true,
			Command:    "bench -c 10.0.0.1",
			ExitCode:   -1,
		},
		{SlotID: 2, State: "Idle", ExitCode: 3},
	}}, nil
}

func (f *fakeClient) KillJob(
	_ context.Context,
	in *api.KillJobRequest,
	_ ...grpc.CallOption,
) (*api.KillJobResponse, error) {
	f.killed = append(f.killed, in.SlotID)
	return &api.KillJobResponse{}, nil
}

func (f *fakeClient) KillAll(
	context.Context,
	*api.KillAllRequest,
	...grpc.CallOption,
) (*api.KillAllResponse, error) {
	f.killAll = true
	return &api.KillAllResponse{}, nil
}

func (f *fakeClient) JobResult(
	_ context.Context,
	in *api.JobResultRequest,
	_ ...grpc.CallOption,
) (*api.JobResultResponse, error) {
	if f.result == nil {
		return &api.JobResultResponse{SlotID: in.SlotID}, nil
	}

	return f.result, nil
}

func execute(t *testing.T, c *cli, name string, args ...string) (string, error) {
	t.Helper()

	var cmd *cobra.Command

	switch name {
	case "start":
		cmd = c.startCmd()
	case "status":
		cmd = c.statusCmd()
	case "kill":
		cmd = c.killCmd()
	case "result":
		cmd = c.resultCmd()
	default:
		t.Fatalf("unknown command '%s'", name)
	}

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	// Nil args make cobra fall back to os.Args.
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestStartCmd(t *testing.T) {
	t.Parallel()

	t.Run("Test job flags are passed through", func(t *testing.T) {
		t.Parallel()

		fake := &fakeClient{}

		out, err := execute(
			t,
			&cli{client: fake},
			"start",
			"--background", "bench", "-c", "10.0.0.1", "-t", "5",
		)
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		if out != "1\n" {
			t.Errorf("expected slot id: got '%s'", out)
		}

		want := "bench -c 10.0.0.1 -t 5"
		if got := strings.Join(fake.started.Args, " "); got != want {
			t.Errorf("expected args: got '%s', want '%s'", got, want)
		}

		if !fake.started.Background {
			t.Errorf("expected background to be set")
		}
	})

	t.Run("Test busy error is mapped", func(t *testing.T) {
		t.Parallel()

		fake := &fakeClient{
			startErr: status.Error(codes.ResourceExhausted, "all slots busy"),
		}

		_, err := execute(t, &cli{client: fake}, "start", "bench", "-s")
		if err == nil || err.Error() != "all slots busy" {
			t.Errorf("expected busy error: got '%v'", err)
		}
	})
}

func TestStatusCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, &cli{client: &fakeClient{}}, "status")
	if err != nil {
		t.Fatalf("expected not to receive error: got '%v'", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two slots: got '%s'", out)
	}

	for _, want := range []string{"SLOT", "STATE", "COMMAND"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("expected header '%s': got '%s'", want, lines[0])
		}
	}

	if !strings.Contains(lines[1], "Background") ||
		!strings.Contains(lines[1], "bench -c 10.0.0.1") {
		t.Errorf("expected running slot: got '%s'", lines[1])
	}

	if !strings.Contains(lines[2], "Idle") || !strings.Contains(lines[2], "3") {
		t.Errorf("expected idle slot with exit code: got '%s'", lines[2])
	}
}

func TestKillCmd(t *testing.T) {
	t.Parallel()

	t.Run("Test kill slot", func(t *testing.T) {
		t.Parallel()

		fake := &fakeClient{}

		if _, err := execute(t, &cli{client: fake}, "kill", "2"); err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		if len(fake.killed) != 1 || fake.killed[0] != 2 || fake.killAll {
			t.Errorf("expected slot 2 to be killed: got '%v'", fake.killed)
		}
	})

	t.Run("Test kill all", func(t *testing.T) {
		t.Parallel()

		fake := &fakeClient{}

		if _, err := execute(t, &cli{client: fake}, "kill"); err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		if !fake.killAll {
			t.Errorf("expected all slots to be killed")
		}
	})

	t.Run("Test invalid slot", func(t *testing.T) {
		t.Parallel()

		if _, err := execute(t, &cli{client: &fakeClient{}}, "kill", "one"); err == nil {
			t.Errorf("expected to receive error")
		}
	})
}

func TestResultCmd(t *testing.T) {
	t.Parallel()

	t.Run("Test no results", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, &cli{client: &fakeClient{}}, "result", "2")
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		if out != "No results for slot #2\n" {
			t.Errorf("expected no results message: got '%s'", out)
		}
	})

	t.Run("Test results deleted", func(t *testing.T) {
		t.Parallel()

		fake := &fakeClient{result: &api.JobResultResponse{
			SlotID:    1,
			Available: true,
			Text:      "bench Done.\n",
			Discarded: true,
		}}

		out, err := execute(t, &cli{client: fake}, "result", "1")
		if err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		if !strings.Contains(out, "bench Done.") {
			t.Errorf("expected results text: got '%s'", out)
		}

		if !strings.Contains(out, "Note: results of slot #1 were deleted.") {
			t.Errorf("expected deletion note: got '%s'", out)
		}
	})
}

func TestCliHelpers(t *testing.T) {
	t.Parallel()

	t.Run("Test exit code mapping", func(t *testing.T) {
		if got := mapExitCode(-1); got != "-" {
			t.Errorf("expected no exit code: got '%s'", got)
		}

		if got := mapExitCode(2); got != "2" {
			t.Errorf("expected exit code: got '%s'", got)
		}
	})

	t.Run("Test error mapping", func(t *testing.T) {
		err := mapError(status.Error(codes.PermissionDenied, "not authorised"))
		if err.Error() != "permission denied" {
			t.Errorf("expected permission denied: got '%v'", err)
		}

		err = mapError(status.Error(codes.OutOfRange, "invalid slot id 3: must be 1-2"))
		if err.Error() != "invalid slot id 3: must be 1-2" {
			t.Errorf("expected server message: got '%v'", err)
		}
	})
}
