package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea/v2"

	"insncorpus/internal/classify"
	"insncorpus/internal/disasm"
	"insncorpus/internal/isa/targets"
)

func TestList(t *testing.T) {
	code, stdout, stderr := run(t, "list", "arm")
	if code != ExitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if !strings.Contains(lines[0], "OPCODE") || !strings.Contains(lines[0], "MNEMONIC") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(stdout, "BX_RET") {
		t.Error("BX_RET missing from listing")
	}
	footer := lines[len(lines)-1]
	if !strings.HasPrefix(footer, "arm (armv7-unknown-linux-gnueabi):") {
		t.Errorf("footer = %q", footer)
	}
	if strings.Contains(stdout, "\x1b[") {
		t.Error("listing to a non-terminal is colored")
	}
}

func TestListFilter(t *testing.T) {
	code, stdout, stderr := run(t, "list", "x86", "--outcome", "special_error")
	if code != ExitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	body := lines[1 : len(lines)-1]
	if len(body) != 2 {
		t.Fatalf("want UD2 and LOCK_PREFIX, got %q", body)
	}
	for _, l := range body {
		if !strings.Contains(l, "SPECIAL_ERROR") {
			t.Errorf("unexpected row %q", l)
		}
	}
}

func TestListJSON(t *testing.T) {
	code, stdout, stderr := run(t, "list", "x86", "--json", "--outcome", "pseudo,unsupported")
	if code != ExitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	var recs []map[string]any
	if err := json.Unmarshal([]byte(stdout), &recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) == 0 {
		t.Fatal("no records")
	}
	for _, r := range recs {
		if o := r["outcome"]; o != "PSEUDO" && o != "UNSUPPORTED" {
			t.Errorf("record %v has outcome %v", r["mnemonic"], o)
		}
	}
}

func TestListErrors(t *testing.T) {
	tests := []struct {
		args []string
		want int
	}{
		{[]string{"list"}, ExitUsage},
		{[]string{"list", "x86", "arm"}, ExitUsage},
		{[]string{"list", "x86", "--outcome", "broken"}, ExitUsage},
		{[]string{"list", "mips"}, ExitFatal},
		{[]string{"list", "sparc"}, ExitFatal},
	}
	for _, tt := range tests {
		if code, _, _ := run(t, tt.args...); code != tt.want {
			t.Errorf("%v: exit %d, want %d", tt.args, code, tt.want)
		}
	}
}

func TestShow(t *testing.T) {
	for _, name := range []string{"ADD64rr", "add64rr"} {
		code, stdout, stderr := run(t, "show", "x86", name)
		if code != ExitOK {
			t.Fatalf("%s: exit %d: %s", name, code, stderr)
		}
		for _, want := range []string{
			"mnemonic  ADD64rr",
			"outcome   BUILT",
			"operands  ADD64rr RAX, RAX, RAX",
			"bytes     48 01 c0",
			"artifact  48 01 c0 | c3",
			"asm       add %rax,%rax",
			"0000  48 01 c0  add %rax,%rax",
		} {
			if !strings.Contains(stdout, want) {
				t.Errorf("%s: output lacks %q:\n%s", name, want, stdout)
			}
		}
	}
}

func TestWriteDetailPartialListing(t *testing.T) {
	det := &detail{
		Record:     classify.Record{Opcode: 7, Mnemonic: "RET", Outcome: classify.Built, Printable: true},
		Code:       []byte{0xc0, 0x03, 0x5f, 0xd6},
		Term:       []byte{0xc0, 0x03},
		Text:       "ret",
		Listing:    disasm.Stream{{VA: 0, Text: "ret", Op: "ret", Raw: []byte{0xc0, 0x03, 0x5f, 0xd6}}},
		ListingErr: fmt.Errorf("decode at 0x4: %w", disasm.ErrTruncated),
	}
	var buf bytes.Buffer
	writeDetail(&buf, "aarch64", det, false)
	out := buf.String()
	for _, want := range []string{
		"listing   decode at 0x4: truncated instruction",
		"0000  c0 03 5f d6  ret",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}

	p, err := targets.Lookup("aarch64")
	if err != nil {
		t.Fatal(err)
	}
	if md := detailMarkdown(p, det, nil); !strings.Contains(md, "> listing: decode at 0x4") {
		t.Errorf("markdown lacks the listing note:\n%s", md)
	}

	det.ListingErr = nil
	buf.Reset()
	writeDetail(&buf, "aarch64", det, false)
	if strings.Contains(buf.String(), "listing ") {
		t.Errorf("note printed for a complete listing:\n%s", buf.String())
	}
}

func TestShowByNumberAndUnbuilt(t *testing.T) {
	p, err := targets.Lookup("x86")
	if err != nil {
		t.Fatal(err)
	}
	op, _ := p.OpcodeByName("ADJCALLSTACKDOWN64")
	code, stdout, _ := run(t, "show", "x86", strconv.Itoa(op))
	if code != ExitFatal {
		t.Errorf("pseudo opcode: exit %d, want %d", code, ExitFatal)
	}
	if !strings.Contains(stdout, "outcome   PSEUDO") {
		t.Errorf("pseudo opcode output:\n%s", stdout)
	}

	code, stdout, _ = run(t, "show", "x86", "ENDBR64")
	if code != ExitOK {
		t.Fatalf("ENDBR64: exit %d", code)
	}
	if !strings.Contains(stdout, "asm       <unprintable>") {
		t.Errorf("ENDBR64 output:\n%s", stdout)
	}

	for _, args := range [][]string{
		{"show", "x86", "999999"},
		{"show", "x86", "NOSUCH"},
		{"show", "mips", "ADD"},
	} {
		if code, _, _ := run(t, args...); code != ExitFatal {
			t.Errorf("%v: exit %d, want %d", args, code, ExitFatal)
		}
	}
	if code, _, _ := run(t, "show", "x86"); code != ExitUsage {
		t.Errorf("show with one argument: exit %d", code)
	}
}

func TestBrowseNonTerminal(t *testing.T) {
	code, stdout, stderr := run(t, "browse", "aarch64")
	if code != ExitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "LDPXpost") {
		t.Errorf("table lacks LDPXpost:\n%s", stdout)
	}
}

func loadedBrowser(t *testing.T, arch string) browser {
	t.Helper()
	m := newBrowser(targets.Provider{}, arch)
	next, _ := m.Update(loadProfileCmd(targets.Provider{}, arch)())
	next, _ = next.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(browser)
}

func TestBrowser(t *testing.T) {
	b := loadedBrowser(t, "x86")
	if b.loading || b.err != nil || b.profile == nil {
		t.Fatalf("profile not loaded: loading=%v err=%v", b.loading, b.err)
	}
	if got := len(b.records.Items()); got != b.profile.NumOpcodes() {
		t.Errorf("%d items, want %d", got, b.profile.NumOpcodes())
	}
	if !strings.Contains(b.View(), "Enter: details") {
		t.Error("records view lacks its menu")
	}

	op, _ := b.profile.OpcodeByName("ADD64rr")
	b.records.Select(op)
	b, _, handled := b.handleKey("enter")
	if !handled || b.mode != viewDetail {
		t.Fatalf("enter did not open detail (handled=%v mode=%v)", handled, b.mode)
	}
	if !strings.Contains(b.View(), "Esc: back") {
		t.Error("detail view lacks its menu")
	}
	b, _, _ = b.handleKey("esc")
	if b.mode != viewRecords {
		t.Error("esc did not return to records")
	}

	_, cmd, handled := b.handleKey("q")
	if !handled || cmd == nil {
		t.Fatal("q did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not produce a quit message")
	}
}

func TestBrowserUnknownArch(t *testing.T) {
	b := loadedBrowser(t, "mips")
	if b.err == nil {
		t.Fatal("no error for mips")
	}
	if !strings.Contains(b.View(), "unknown architecture") {
		t.Errorf("view = %q", b.View())
	}
	if _, _, handled := b.handleKey("enter"); handled {
		t.Error("enter handled without a profile")
	}
}

func TestDetailMarkdown(t *testing.T) {
	p, err := targets.Lookup("x86")
	if err != nil {
		t.Fatal(err)
	}
	op, _ := p.OpcodeByName("ADD64rr")
	det, err := describe(p, op)
	if err != nil {
		t.Fatal(err)
	}
	md := detailMarkdown(p, det, nil)
	for _, want := range []string{"# ADD64rr", "| outcome | BUILT |", "`ADD64rr RAX, RAX, RAX`", "48 01 c0", "add %rax,%rax"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown lacks %q:\n%s", want, md)
		}
	}

	pseudo, _ := p.OpcodeByName("ADJCALLSTACKUP64")
	det, err = describe(p, pseudo)
	if det == nil || det.Record.Outcome != classify.Pseudo {
		t.Fatalf("describe pseudo = %+v, %v", det, err)
	}
	if md := detailMarkdown(p, det, err); strings.Contains(md, "operands") {
		t.Errorf("pseudo detail shows operands:\n%s", md)
	}
}
