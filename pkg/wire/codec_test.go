package wire

import (
	"errors"
	"reflect"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		args []string
		want string
	}{
		{
			name: "power on",
			cmd:  CmdPower,
			args: []string{"1"},
			want: "hp 1\n",
		},
		{
			name: "no arguments",
			cmd:  CmdNoOp,
			want: "nop\n",
		},
		{
			name: "empty argument slice",
			cmd:  CmdHalt,
			args: []string{},
			want: "halt\n",
		},
		{
			name: "homing status query",
			cmd:  CmdGetParam,
			args: []string{"2800", "1", "0", "1"},
			want: "pd 2800 1 0 1\n",
		},
		{
			name: "mixed case verb",
			cmd:  CmdMoveRail,
			args: []string{"1", "1", "250.5"},
			want: "moveRail 1 1 250.5\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.cmd, tt.args...)
			if got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
			if line := (Request{Command: tt.cmd, Args: tt.args}).Line(); line != tt.want {
				t.Errorf("Request.Line() = %q, want %q", line, tt.want)
			}
		})
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	argSets := [][]string{
		nil,
		{"1"},
		{"7", "300", "0", "150", "0", "90", "-180"},
		{"-1"},
		{"a", "b", "c", "d", "e", "f", "g", "h", "i"},
	}

	for _, cmd := range Commands() {
		for _, args := range argSets {
			line := Encode(cmd, args...)

			req, verb, err := ParseRequest(line)
			if err != nil {
				t.Fatalf("ParseRequest(%q) failed: %v", line, err)
			}
			if verb != cmd.String() {
				t.Errorf("verb = %q, want %q", verb, cmd.String())
			}
			if req.Command != cmd {
				t.Errorf("command = %v, want %v", req.Command, cmd)
			}
			if len(args) == 0 {
				if len(req.Args) != 0 {
					t.Errorf("args = %v, want none", req.Args)
				}
				continue
			}
			if !reflect.DeepEqual(req.Args, args) {
				t.Errorf("args = %v, want %v", req.Args, args)
			}
		}
	}
}

func TestParseRequestErrors(t *testing.T) {
	if _, _, err := ParseRequest("   \n"); !errors.Is(err, ErrEmptyRequest) {
		t.Errorf("expected ErrEmptyRequest, got %v", err)
	}

	_, verb, err := ParseRequest("dance 1 2\n")
	if err == nil {
		t.Fatal("expected error for unknown verb")
	}
	if verb != "dance" {
		t.Errorf("verb = %q, want dance", verb)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Tokens
	}{
		{
			name: "code with trailing separator",
			line: "0 \r\n",
			want: Tokens{"0", ""},
		},
		{
			name: "single field",
			line: "0 1\r\n",
			want: Tokens{"0", "1"},
		},
		{
			name: "error text",
			line: "-1 Invalid robot index\r\n",
			want: Tokens{"-1", "Invalid", "robot", "index"},
		},
		{
			name: "bare line feed",
			line: "0 5\n",
			want: Tokens{"0", "5"},
		},
		{
			name: "no terminator",
			line: "-1234",
			want: Tokens{"-1234"},
		},
		{
			name: "double space keeps empty token",
			line: "0 a  b\r\n",
			want: Tokens{"0", "a", "", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestEncodeResponse(t *testing.T) {
	if got := EncodeResponse(0); got != "0 \r\n" {
		t.Errorf("EncodeResponse(0) = %q", got)
	}
	if got := EncodeResponse(-1, "Invalid", "robot", "index"); got != "-1 Invalid robot index\r\n" {
		t.Errorf("EncodeResponse(-1, ...) = %q", got)
	}
}

func TestCommandStrings(t *testing.T) {
	want := map[Command]string{
		CmdNoOp:         "nop",
		CmdMode:         "mode",
		CmdPower:        "hp",
		CmdSelect:       "selectRobot",
		CmdAttach:       "attach",
		CmdHome:         "home",
		CmdHalt:         "halt",
		CmdLoc:          "loc",
		CmdLocXYZ:       "locXYZ",
		CmdProfile:      "profile",
		CmdMove:         "move",
		CmdMoveToCart:   "movec",
		CmdMoveToJoints: "movej",
		CmdMotionState:  "state",
		CmdMoveOneAxis:  "moveoneaxis",
		CmdMoveRail:     "moveRail",
		CmdGetParam:     "pd",
		CmdGetLocJoints: "wherej",
		CmdGetLocCart:   "wherec",
		CmdFreeMode:     "freemode",
		CmdSystemSpeed:  "mspeed",
		CmdPayload:      "payload",
		CmdWaitForEOM:   "waitForEOM",
		CmdExit:         "exit",
	}

	if len(Commands()) != len(want) {
		t.Fatalf("Commands() returned %d entries, want %d", len(Commands()), len(want))
	}
	for cmd, name := range want {
		if cmd.String() != name {
			t.Errorf("%d.String() = %q, want %q", cmd, cmd.String(), name)
		}
		parsed, err := ParseCommand(name)
		if err != nil || parsed != cmd {
			t.Errorf("ParseCommand(%q) = %v, %v", name, parsed, err)
		}
	}

	if Command(0).IsValid() {
		t.Error("zero command should be invalid")
	}
	if _, err := ParseCommand("HP"); err == nil {
		t.Error("verbs are case sensitive")
	}
}
