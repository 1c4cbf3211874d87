package rizin

import (
	"context"
	"slices"
	"testing"

	"github.com/matzehuels/disgraph/pkg/errors"
)

// fake answers the last command of each batch from a table.
func fake(t *testing.T, answers map[string]string) (Runner, *[]string) {
	t.Helper()
	var seen []string
	return func(_ context.Context, commands []string) ([]byte, error) {
		cmd := commands[len(commands)-1]
		seen = append(seen, cmd)
		out, ok := answers[cmd]
		if !ok {
			return nil, errors.New(errors.ErrCodeQueryFailed, "unexpected command %q", cmd)
		}
		return []byte(out), nil
	}, &seen
}

func TestFunctionGraph(t *testing.T) {
	run, seen := fake(t, map[string]string{
		"agfj @ 0x1000": `[{"name":"main","offset":4096,"size":32,"blocks":[
			{"offset":4096,"size":16,"jump":4112,"fail":4128,"ops":[{"offset":4096,"size":4,"disasm":"test eax, eax"}]},
			{"offset":4112,"size":8,"switchop":{"cases":[{"jump":4128},{"jump":4136}]},"ops":[]}
		]}]`,
	})
	e := New("/bin/true", WithRunner(run))

	f, err := e.FunctionGraph(context.Background(), 0x1000)
	if err != nil {
		t.Fatalf("FunctionGraph: %v", err)
	}
	if f.Name != "main" || len(f.Blocks) != 2 {
		t.Fatalf("got %+v", f)
	}
	if b := f.Blocks[0]; b.Jump != 0x1010 || b.Fail != 0x1020 || b.Instructions[0].Text != "test eax, eax" {
		t.Errorf("block 0 = %+v", b)
	}
	if cases := f.Blocks[1].SwitchCases; !slices.Equal(cases, []uint64{0x1020, 0x1028}) {
		t.Errorf("switch cases = %#x", cases)
	}
	if !slices.Equal(*seen, []string{"agfj @ 0x1000"}) {
		t.Errorf("commands = %q", *seen)
	}
}

func TestCallTargets(t *testing.T) {
	run, _ := fake(t, map[string]string{
		"afxj @ 0x1000": `[
			{"type":"CALL","from":4100,"to":8192,"name":"sym.imp.puts"},
			{"type":"CODE","from":4104,"to":4128},
			{"type":"CALL","from":4108,"to":8192,"name":"sym.imp.puts"},
			{"type":"CALL","from":4112,"to":12288}
		]`,
	})
	got, err := New("a.out", WithRunner(run)).CallTargets(context.Background(), 0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Label != "sym.imp.puts" || got[1].Addr != 0x3000 || got[1].Label != "" {
		t.Errorf("targets = %+v", got)
	}
}

func TestGenericGraphValidatesCommand(t *testing.T) {
	run, seen := fake(t, map[string]string{})
	e := New("a.out", WithRunner(run))
	_, err := e.GenericGraph(context.Background(), "agcj; !rm -rf /")
	if !errors.Is(err, errors.ErrCodeInvalidCommand) {
		t.Errorf("err = %v, want INVALID_COMMAND", err)
	}
	if len(*seen) != 0 {
		t.Error("invalid command must not reach rizin")
	}
}

func TestQueryErrors(t *testing.T) {
	run, _ := fake(t, map[string]string{"aflj": "", "axfj @ 0x10": "not json"})
	e := New("a.out", WithRunner(run))
	ctx := context.Background()

	if _, err := e.Functions(ctx); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("empty output: err = %v", err)
	}
	if _, err := e.CrossReferences(ctx, 0x10); !errors.Is(err, errors.ErrCodeQueryFailed) {
		t.Errorf("bad json: err = %v", err)
	}
	if _, err := e.LinkedList(ctx, 0x10); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("linked list: err = %v", err)
	}
}
