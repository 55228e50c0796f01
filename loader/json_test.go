package loader_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvidlang/corvid/lang/bytecode"
	"github.com/corvidlang/corvid/loader"
)

func TestParseFromJSONRoundTripsWithAssembler(t *testing.T) {
	// The two loaders share encodeOperand/operandDefs, so a function
	// expressed in both notations must produce byte-identical code.
	asmSrc := `
function add params=2 frame=2 varargs=false
  add 0 0 1
  return 0 1 0
endfunction
`
	asmBlocks, err := loader.Assemble(asmSrc)
	require.NoError(t, err)

	jsonSrc := `{
		"entry": "add",
		"functions": [{
			"name": "add",
			"params": 2,
			"frame": 2,
			"varargs": false,
			"code": [
				{"op": "add", "operands": ["0", "0", "1"]},
				{"op": "return", "operands": ["0", "1", "0"]}
			]
		}]
	}`
	jsonBlocks, entry, err := loader.ParseFromJSON([]byte(jsonSrc))
	require.NoError(t, err)
	require.Equal(t, "add", entry)

	require.Equal(t, asmBlocks["add"].Code, jsonBlocks["add"].Code)
	require.Equal(t, asmBlocks["add"].FrameSize, jsonBlocks["add"].FrameSize)
	require.Equal(t, asmBlocks["add"].NumFixedArgs, jsonBlocks["add"].NumFixedArgs)
}

func TestParseFromJSONErrors(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		err  string
	}{
		{"invalid json", `not json`, "parse json module"},
		{"no entry", `{"functions":[]}`, "no entry function"},
		{"unknown entry", `{"entry":"missing","functions":[]}`, `entry function "missing" not defined`},
		{"unknown opcode", `{"entry":"f","functions":[{"name":"f","code":[{"op":"bogus","operands":[]}]}]}`, `unknown opcode "bogus"`},
		{"operand count mismatch", `{"entry":"f","functions":[{"name":"f","code":[{"op":"move","operands":["0"]}]}]}`, "operand count mismatch"},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			_, _, err := loader.ParseFromJSON([]byte(c.in))
			require.Error(t, err)
			require.Contains(t, err.Error(), c.err)
		})
	}
}

func TestParseFromJSONLabelsAndBranchOffsets(t *testing.T) {
	src := `{
		"entry": "f",
		"functions": [{
			"name": "f",
			"frame": 1,
			"code": [
				{"op": "branchiftruthy", "operands": ["0", "skip"]},
				{"op": "constant", "operands": ["0", "c0"]},
				{"label": "skip", "op": "return", "operands": ["0", "0", "0"]}
			],
			"constants": [{"kind": "double", "number": 1}]
		}]
	}`
	blocks, entry, err := loader.ParseFromJSON([]byte(src))
	require.NoError(t, err)
	require.Equal(t, "f", entry)
	require.NotEmpty(t, blocks["f"].Code)

	// branchiftruthy and constant are 9 bytes each, so "skip" sits 18 bytes
	// past the start of the branch.
	r := bytecode.NewReader(blocks["f"].Code, 0)
	r.Op()
	r.Slot()
	require.Equal(t, int32(18), r.Offset())
}
