package winewizard

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

const sampleWineOutput = "\x1b[1mStarting setup.exe\x1b[0m\n" +
	"0024:fixme:ole:CoInitializeSecurity stub\n" +
	"0024:err:module:import_dll Library MSVCR120.dll not found\n" +
	"0030:warn:file:CreateFileW no such file [missing]\n" +
	"wine: Unhandled page fault on read access\n" +
	"done\n"

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want lineKind
	}{
		{"0024:err:module:import_dll Library not found", lineError},
		{"err:ntdll:RtlpWaitForCriticalSection", lineError},
		{"wine: Unhandled page fault", lineError},
		{"0030:warn:file:CreateFileW", lineWarn},
		{"0024:fixme:ole:CoInitializeSecurity stub", lineFixme},
		{"Installing stderr: nothing to see", lineNormal},
		{"", lineNormal},
	}
	for _, tt := range tests {
		if got := classifyLine(tt.line); got != tt.want {
			t.Errorf("classifyLine(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestOutputMarkup(t *testing.T) {
	lines := outputLines(Output{Text: sampleWineOutput})
	if lines[0] != "Starting setup.exe" {
		t.Errorf("escape codes not stripped: %q", lines[0])
	}
	markup, errRows := outputMarkup(lines)
	if !reflect.DeepEqual(errRows, []int{2, 4}) {
		t.Errorf("error rows = %v, want [2 4]", errRows)
	}
	containsAll(t, markup,
		"[red::b]0024:err:module:import_dll",
		"[yellow]0030:warn:file:CreateFileW no such file [missing[]",
		"[gray]0024:fixme:ole",
	)
	if got := strings.Count(markup, "\n"); got != len(lines) {
		t.Errorf("markup has %d lines, want %d", got, len(lines))
	}
}

func TestNextRow(t *testing.T) {
	rows := []int{2, 4, 9}
	tests := []struct {
		current int
		forward bool
		want    int
	}{
		{-1, true, 2},
		{2, true, 4},
		{9, true, 2},
		{4, false, 2},
		{2, false, 9},
	}
	for _, tt := range tests {
		if got := nextRow(rows, tt.current, tt.forward); got != tt.want {
			t.Errorf("nextRow(%d, %v) = %d, want %d", tt.current, tt.forward, got, tt.want)
		}
	}
	if got := nextRow(nil, -1, true); got != -1 {
		t.Errorf("nextRow(nil) = %d", got)
	}
}

func TestPrintOutput(t *testing.T) {
	var buf bytes.Buffer
	printOutput(&buf, Output{Text: sampleWineOutput, ExitCode: 1})
	got := buf.String()
	containsAll(t, got, "MSVCR120.dll not found", "done\n", "exit status 1, 2 error lines")
	if strings.Contains(got, "\x1b[1mStarting") {
		t.Error("program escape codes passed through")
	}
}
