package deferred

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mamala42/remix/handoff"
)

// Browser-global registry names used by the streamed scripts.
const (
	dataGlobal     = "__remixDeferredData"
	resolverGlobal = "__remixDeferredResolvers"
)

// installBody lazily initializes the process-wide registry and installs
// exactly one unresolved promise plus its resolver under (routeID, key).
// The conditional makes it idempotent, so the resolution script can carry
// the same block and tolerate running before the installer.
const installBody = `var d=window.` + dataGlobal + `=window.` + dataGlobal + `||{};` +
	`var v=window.` + resolverGlobal + `=window.` + resolverGlobal + `||{};` +
	`d[r]=d[r]||{};v[r]=v[r]||{};` +
	`if(!v[r][k]){d[r][k]=new Promise(function(res,rej){v[r][k]={resolve:res,reject:rej};});}`

// InstallerScript emits the consumer-side inline script for one deferred
// key: it installs the pending promise and its resolver before any other
// script can observe the key.
func InstallerScript(routeID, key string) (string, error) {
	r, err := jsString(routeID)
	if err != nil {
		return "", err
	}
	k, err := jsString(key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(function(r,k){%s})(%s,%s);`, installBody, r, k), nil
}

// ResolutionScript emits the producer-side inline script for one deferred
// key, produced once the server-side await settles. A single block first
// guarantees the resolver is installed, then overwrites the registry value
// with the final literal (or reconstructed error) and invokes the stored
// resolver. Within one key this ordering is what makes the two-phase
// handoff safe; across keys no ordering is promised.
func ResolutionScript(routeID, key string, value any, settleErr *handoff.SerializedError) (string, error) {
	r, err := jsString(routeID)
	if err != nil {
		return "", err
	}
	k, err := jsString(key)
	if err != nil {
		return "", err
	}

	if settleErr != nil {
		e, err := jsValue(settleErr)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(
			`(function(r,k,err){%s`+
				`var e=new Error(err.message);e.stack=err.stack;`+
				`d[r][k]=e;v[r][k].reject(e);})(%s,%s,%s);`,
			installBody, r, k, e,
		), nil
	}

	val, err := jsValue(value)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		`(function(r,k,val){%s`+
			`d[r][k]=val;v[r][k].resolve(val);})(%s,%s,%s);`,
		installBody, r, k, val,
	), nil
}

func jsString(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("deferred script identifier is empty")
	}
	return jsValue(s)
}

func jsValue(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal deferred script value: %w", err)
	}
	return handoff.EscapeInlineJSON(raw), nil
}
