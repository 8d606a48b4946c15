package survey

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// scoreTimeout bounds a single scoring script run. Scripts are tiny; a
// second is already generous and protects against accidental infinite loops.
const scoreTimeout = 1 * time.Second

// Score runs a template's scoring script against a set of answers and
// returns the computed score. The script must export a score(answers)
// function via the exports object:
//
//	exports.score = function(answers) { return answers.q1 + answers.q2; }
//
// A fresh VM is created per call so scripts cannot leak state between
// submissions.
func Score(script string, answers map[string]interface{}) (float64, error) {
	vm := goja.New()

	exports := vm.NewObject()
	vm.Set("exports", exports)

	// Wrap the script in a function to provide module-like context,
	// mirroring the CommonJS wrapper: (function(exports) { ... })
	moduleScript := fmt.Sprintf(`(function(exports) {
%s
})(exports);`, script)

	if _, err := vm.RunString(moduleScript); err != nil {
		return 0, fmt.Errorf("failed to execute scoring script: %w", err)
	}

	fn := exports.Get("score")
	if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
		return 0, fmt.Errorf("scoring script missing required export: score")
	}

	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return 0, fmt.Errorf("exported score is not a function")
	}

	timer := time.AfterFunc(scoreTimeout, func() {
		vm.Interrupt("scoring script timed out")
	})
	defer timer.Stop()

	val, err := callable(goja.Undefined(), vm.ToValue(answers))
	if err != nil {
		return 0, fmt.Errorf("scoring script failed: %w", err)
	}
	if goja.IsUndefined(val) || goja.IsNull(val) {
		return 0, fmt.Errorf("scoring script returned no value")
	}

	return val.ToFloat(), nil
}
