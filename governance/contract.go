// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package governance

import (
	"encoding/json"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vechain/scoreloop/deploy"
	"github.com/vechain/scoreloop/icx"
	"github.com/vechain/scoreloop/netvalue"
	"github.com/vechain/scoreloop/tx"
)

// Env is the environment of one governance invocation.
type Env struct {
	Sender   icx.Address
	Value    *big.Int
	TxHash   icx.Bytes32
	ReadOnly bool

	Values  *netvalue.Container
	Batch   *netvalue.Batch // nil when read only
	Deploys *deploy.Storage

	Events []icx.EventLog
}

func (e *Env) emit(signature string, indexed int, args ...any) {
	e.Events = append(e.Events, icx.NewEventLog(icx.GovernanceAddress, signature, indexed, args...))
}

func (e *Env) stage(v netvalue.Value) error {
	if e.Batch == nil {
		return icx.Errorf(icx.AccessDenied, "Network values can not be changed in a read only context")
	}
	return e.Values.Stage(e.Batch, icx.GovernanceAddress, v)
}

// staged returns the value of type t staged by this transaction, nil if none.
func (e *Env) staged(t netvalue.Type) netvalue.Value {
	if e.Batch == nil {
		return nil
	}
	return e.Batch.Get(t)
}

func (e *Env) stepPrice() *big.Int {
	if v, ok := e.staged(netvalue.TypeStepPrice).(netvalue.StepPrice); ok {
		return new(big.Int).Set(v.Price)
	}
	return e.Values.StepPrice()
}

func (e *Env) revisionName() string {
	if v, ok := e.staged(netvalue.TypeRevisionName).(netvalue.RevisionName); ok {
		return string(v)
	}
	return e.Values.RevisionName()
}

func (e *Env) maxStepLimit(ctx icx.ContextType) *big.Int {
	if l, ok := e.maxStepLimits()[ctx]; ok {
		return new(big.Int).Set(l)
	}
	return new(big.Int)
}

func (e *Env) revision() int {
	if v, ok := e.staged(netvalue.TypeRevisionCode).(netvalue.RevisionCode); ok {
		return int(v)
	}
	return e.Values.Revision()
}

func (e *Env) stepCosts() netvalue.StepCosts {
	if v, ok := e.staged(netvalue.TypeStepCosts).(netvalue.StepCosts); ok {
		return v
	}
	return e.Values.StepCosts()
}

func (e *Env) maxStepLimits() netvalue.MaxStepLimits {
	if v, ok := e.staged(netvalue.TypeMaxStepLimits).(netvalue.MaxStepLimits); ok {
		return v
	}
	return e.Values.MaxStepLimits()
}

func (e *Env) scoreBlackList() netvalue.ScoreBlackList {
	if v, ok := e.staged(netvalue.TypeScoreBlackList).(netvalue.ScoreBlackList); ok {
		return v
	}
	return e.Values.ScoreBlackList()
}

func (e *Env) importWhiteList() netvalue.ImportWhiteList {
	if v, ok := e.staged(netvalue.TypeImportWhiteList).(netvalue.ImportWhiteList); ok {
		return v
	}
	return e.Values.ImportWhiteList()
}

// Invoke runs the method name with params.
func (g *Governance) Invoke(env *Env, name string, params map[string]any) (any, error) {
	m, ok := LookupMethod(name)
	if !ok || m.Flags&External == 0 {
		return nil, icx.Errorf(icx.ScoreNotFound, "Method not found: %s", name)
	}
	version, err := g.Version()
	if err != nil {
		return nil, err
	}
	if !m.Available(version) {
		return nil, icx.Errorf(icx.ScoreNotFound, "Method not found: %s (governance v%d)", name, version)
	}
	if env.ReadOnly && m.Flags&ReadOnly == 0 {
		return nil, icx.Errorf(icx.AccessDenied, "Not a read only method: %s", name)
	}
	if env.Value != nil && env.Value.Sign() > 0 && m.Flags&Payable == 0 {
		return nil, icx.Errorf(icx.InvalidRequest, "Method not payable: %s", name)
	}
	return g.dispatch(env, m.Call, version, tx.Params(params))
}

func (g *Governance) dispatch(env *Env, call Call, version int, params tx.Params) (any, error) {
	switch call {
	case CallFallback:
		return nil, nil
	case CallGetVersion:
		return (*hexutil.Big)(big.NewInt(int64(version))), nil
	case CallGetStepPrice:
		return (*hexutil.Big)(env.stepPrice()), nil
	case CallGetStepCosts:
		costs := make(map[string]*hexutil.Big)
		for t, c := range env.stepCosts().Map() {
			costs[string(t)] = (*hexutil.Big)(big.NewInt(c))
		}
		return costs, nil
	case CallGetMaxStepLimit:
		ctx, err := contextType(params)
		if err != nil {
			return nil, err
		}
		return (*hexutil.Big)(env.maxStepLimit(ctx)), nil
	case CallGetRevision:
		return map[string]any{
			"code": (*hexutil.Big)(big.NewInt(int64(env.revision()))),
			"name": env.revisionName(),
		}, nil
	case CallGetScoreStatus:
		addr, err := requireAddress(params, "address")
		if err != nil {
			return nil, err
		}
		return env.Deploys.ScoreStatus(addr)
	case CallIsAuditor:
		addr, err := requireAddress(params, "address")
		if err != nil {
			return nil, err
		}
		return g.IsAuditor(addr)
	case CallIsInScoreBlackList:
		addr, err := requireAddress(params, "address")
		if err != nil {
			return nil, err
		}
		return env.scoreBlackList().Contains(addr), nil
	case CallIsInImportWhiteList:
		stmt, err := importStmt(params)
		if err != nil {
			return nil, err
		}
		wl := env.importWhiteList()
		for module, names := range stmt {
			for _, n := range names {
				if !wl.Allows(module, n) {
					return false, nil
				}
			}
		}
		return true, nil
	case CallAcceptScore:
		return nil, g.acceptScore(env, version, params)
	case CallRejectScore:
		return nil, g.rejectScore(env, version, params)
	case CallAddAuditor:
		return nil, g.addAuditor(env, params)
	case CallRemoveAuditor:
		return nil, g.removeAuditor(env, params)
	case CallSetStepPrice:
		return nil, g.setStepPrice(env, params)
	case CallSetStepCost:
		return nil, g.setStepCost(env, params)
	case CallSetMaxStepLimit:
		return nil, g.setMaxStepLimit(env, params)
	case CallSetRevision:
		return nil, g.setRevision(env, params)
	case CallAddToScoreBlackList:
		return nil, g.addToScoreBlackList(env, params)
	case CallRemoveFromScoreBlackList:
		return nil, g.removeFromScoreBlackList(env, params)
	case CallAddImportWhiteList:
		return nil, g.addImportWhiteList(env, params)
	case CallRemoveImportWhiteList:
		return nil, g.removeImportWhiteList(env, params)
	case CallSetVersion:
		return nil, g.setVersion(env, version, params)
	}
	panic("governance: unhandled call")
}

func (g *Governance) requireOwner(env *Env) error {
	owner, err := g.Owner()
	if err != nil {
		return err
	}
	if env.Sender != owner {
		return icx.Errorf(icx.AccessDenied, "Invalid sender: %s is not the owner", env.Sender)
	}
	return nil
}

func (g *Governance) requireAuditor(env *Env) error {
	ok, err := g.IsAuditor(env.Sender)
	if err != nil {
		return err
	}
	if !ok {
		return icx.Errorf(icx.AccessDenied, "Invalid sender: %s is not an auditor", env.Sender)
	}
	return nil
}

func (g *Governance) acceptScore(env *Env, version int, params tx.Params) error {
	if err := g.requireAuditor(env); err != nil {
		return err
	}
	txHash, err := requireHash(params, "txHash")
	if err != nil {
		return err
	}
	if env.Values.ServiceConfig().Has(netvalue.ServiceScorePackageValidator) {
		validator := deploy.NewImportValidator(env.importWhiteList())
		if err := env.Deploys.CheckImports(txHash, validator); err != nil {
			return err
		}
	}
	info, err := env.Deploys.Accept(version, txHash, env.TxHash)
	if err != nil {
		return err
	}
	logger.Debug("score accepted", "score", info.Score, "txHash", txHash, "auditor", env.Sender)
	env.emit("Accepted(bytes32)", 0, txHash)
	return nil
}

func (g *Governance) rejectScore(env *Env, version int, params tx.Params) error {
	if err := g.requireAuditor(env); err != nil {
		return err
	}
	txHash, err := requireHash(params, "txHash")
	if err != nil {
		return err
	}
	reason, err := requireString(params, "reason")
	if err != nil {
		return err
	}
	info, err := env.Deploys.Reject(version, txHash, env.TxHash)
	if err != nil {
		return err
	}
	logger.Debug("score rejected", "score", info.Score, "txHash", txHash, "reason", reason)
	env.emit("Rejected(bytes32,str)", 0, txHash, reason)
	return nil
}

func (g *Governance) addAuditor(env *Env, params tx.Params) error {
	if err := g.requireOwner(env); err != nil {
		return err
	}
	addr, err := requireAddress(params, "address")
	if err != nil {
		return err
	}
	if err := g.AddAuditor(addr); err != nil {
		return err
	}
	env.emit("AuditorAdded(Address)", 1, addr)
	return nil
}

// removeAuditor is allowed to the owner and to the auditor itself.
func (g *Governance) removeAuditor(env *Env, params tx.Params) error {
	addr, err := requireAddress(params, "address")
	if err != nil {
		return err
	}
	if env.Sender != addr {
		if err := g.requireOwner(env); err != nil {
			return err
		}
	}
	if err := g.RemoveAuditor(addr); err != nil {
		return err
	}
	env.emit("AuditorRemoved(Address)", 1, addr)
	return nil
}

func (g *Governance) setStepPrice(env *Env, params tx.Params) error {
	if err := g.requireOwner(env); err != nil {
		return err
	}
	price, err := requireInt(params, "value")
	if err != nil {
		return err
	}
	if err := env.stage(netvalue.StepPrice{Price: price}); err != nil {
		return err
	}
	env.emit("StepPriceChanged(int)", 1, price)
	return nil
}

func (g *Governance) setStepCost(env *Env, params tx.Params) error {
	if err := g.requireOwner(env); err != nil {
		return err
	}
	stepType, err := requireString(params, "stepType")
	if err != nil {
		return err
	}
	cost, err := requireInt(params, "cost")
	if err != nil {
		return err
	}
	if !cost.IsInt64() {
		return icx.Errorf(icx.InvalidParams, "Invalid cost: %v", cost)
	}
	costs, err := env.stepCosts().With(icx.StepType(stepType), cost.Int64())
	if err != nil {
		return err
	}
	if err := env.stage(costs); err != nil {
		return err
	}
	env.emit("StepCostChanged(str,int)", 1, stepType, cost)
	return nil
}

func (g *Governance) setMaxStepLimit(env *Env, params tx.Params) error {
	if err := g.requireOwner(env); err != nil {
		return err
	}
	ctx, err := contextType(params)
	if err != nil {
		return err
	}
	value, err := requireInt(params, "value")
	if err != nil {
		return err
	}
	limits := make(netvalue.MaxStepLimits)
	for t, l := range env.maxStepLimits() {
		limits[t] = l
	}
	limits[ctx] = value
	if err := env.stage(limits); err != nil {
		return err
	}
	env.emit("MaxStepLimitChanged(str,int)", 1, string(ctx), value)
	return nil
}

func (g *Governance) setRevision(env *Env, params tx.Params) error {
	if err := g.requireOwner(env); err != nil {
		return err
	}
	code, err := requireInt(params, "code")
	if err != nil {
		return err
	}
	name, err := requireString(params, "name")
	if err != nil {
		return err
	}
	if !code.IsInt64() || code.Int64() < int64(env.revision()) {
		return icx.Errorf(icx.InvalidParams, "Invalid revision: %v is lower than %d", code, env.revision())
	}
	if err := env.stage(netvalue.RevisionCode(code.Int64())); err != nil {
		return err
	}
	if err := env.stage(netvalue.RevisionName(name)); err != nil {
		return err
	}
	env.emit("RevisionChanged(int,str)", 0, code, name)
	return nil
}

func (g *Governance) addToScoreBlackList(env *Env, params tx.Params) error {
	if err := g.requireOwner(env); err != nil {
		return err
	}
	addr, err := requireAddress(params, "address")
	if err != nil {
		return err
	}
	if !addr.IsContract() || addr == icx.GovernanceAddress || addr == icx.SystemAddress {
		return icx.Errorf(icx.InvalidParams, "Invalid address: %s can not be black listed", addr)
	}
	list := env.scoreBlackList()
	if list.Contains(addr) {
		return icx.Errorf(icx.InvalidParams, "Invalid address: %s already black listed", addr)
	}
	if err := env.stage(list.With(addr)); err != nil {
		return err
	}
	env.emit("AddedToScoreBlackList(Address)", 0, addr)
	return nil
}

func (g *Governance) removeFromScoreBlackList(env *Env, params tx.Params) error {
	if err := g.requireOwner(env); err != nil {
		return err
	}
	addr, err := requireAddress(params, "address")
	if err != nil {
		return err
	}
	list := env.scoreBlackList()
	if !list.Contains(addr) {
		return icx.Errorf(icx.InvalidParams, "Invalid address: %s not black listed", addr)
	}
	if err := env.stage(list.Without(addr)); err != nil {
		return err
	}
	env.emit("RemovedFromScoreBlackList(Address)", 0, addr)
	return nil
}

func (g *Governance) addImportWhiteList(env *Env, params tx.Params) error {
	if err := g.requireOwner(env); err != nil {
		return err
	}
	stmt, err := importStmt(params)
	if err != nil {
		return err
	}
	wl := env.importWhiteList().Copy()
	for _, module := range sortedModules(stmt) {
		for _, n := range stmt[module] {
			if !contains(wl[module], n) {
				wl[module] = append(wl[module], n)
			}
		}
	}
	if err := env.stage(wl); err != nil {
		return err
	}
	env.emit("AddedToImportWhiteList(str)", 0, params["importStmt"])
	return nil
}

func (g *Governance) removeImportWhiteList(env *Env, params tx.Params) error {
	if err := g.requireOwner(env); err != nil {
		return err
	}
	stmt, err := importStmt(params)
	if err != nil {
		return err
	}
	wl := env.importWhiteList().Copy()
	for _, module := range sortedModules(stmt) {
		names, ok := wl[module]
		if !ok {
			return icx.Errorf(icx.InvalidParams, "Invalid import statement: module %s not white listed", module)
		}
		kept := names[:0]
		for _, n := range names {
			if !contains(stmt[module], n) {
				kept = append(kept, n)
			}
		}
		if len(kept) == 0 {
			delete(wl, module)
		} else {
			wl[module] = kept
		}
	}
	if err := env.stage(wl); err != nil {
		return err
	}
	env.emit("RemovedFromImportWhiteList(str)", 0, params["importStmt"])
	return nil
}

func (g *Governance) setVersion(env *Env, version int, params tx.Params) error {
	if err := g.requireOwner(env); err != nil {
		return err
	}
	v, err := requireInt(params, "version")
	if err != nil {
		return err
	}
	if !v.IsInt64() || v.Int64() <= int64(version) {
		return icx.Errorf(icx.InvalidParams, "Invalid version: %v", v)
	}
	if err := g.SetVersion(int(v.Int64())); err != nil {
		return err
	}
	logger.Info("governance upgraded", "from", version, "to", v)
	env.emit("VersionChanged(int)", 0, v)
	return nil
}

func requireString(params tx.Params, key string) (string, error) {
	s, ok, err := params.String(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", icx.Errorf(icx.InvalidParams, "Missing %s", key)
	}
	return s, nil
}

func requireInt(params tx.Params, key string) (*big.Int, error) {
	n, ok, err := params.Int(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, icx.Errorf(icx.InvalidParams, "Missing %s", key)
	}
	return n, nil
}

func requireAddress(params tx.Params, key string) (icx.Address, error) {
	addr, ok, err := params.Address(key)
	if err != nil {
		return icx.Address{}, icx.Errorf(icx.InvalidParams, "Invalid %s: %v", key, err)
	}
	if !ok {
		return icx.Address{}, icx.Errorf(icx.InvalidParams, "Missing %s", key)
	}
	return addr, nil
}

func requireHash(params tx.Params, key string) (icx.Bytes32, error) {
	s, err := requireString(params, key)
	if err != nil {
		return icx.Bytes32{}, err
	}
	h, err := icx.ParseBytes32(s)
	if err != nil {
		return icx.Bytes32{}, icx.Errorf(icx.InvalidParams, "Invalid %s: %s", key, s)
	}
	return h, nil
}

func contextType(params tx.Params) (icx.ContextType, error) {
	s, err := requireString(params, "contextType")
	if err != nil {
		return "", err
	}
	ctx := icx.ContextType(s)
	if !ctx.IsValid() {
		return "", icx.Errorf(icx.InvalidParams, "Invalid context type: %s", s)
	}
	return ctx, nil
}

// importStmt decodes an import statement, a json object of module paths to imported names.
func importStmt(params tx.Params) (map[string][]string, error) {
	s, err := requireString(params, "importStmt")
	if err != nil {
		return nil, err
	}
	var stmt map[string][]string
	if err := json.Unmarshal([]byte(s), &stmt); err != nil {
		return nil, icx.Errorf(icx.InvalidParams, "Invalid import statement: %v", err)
	}
	for module, names := range stmt {
		if module == "" || len(names) == 0 {
			return nil, icx.Errorf(icx.InvalidParams, "Invalid import statement: %s", s)
		}
	}
	return stmt, nil
}

func sortedModules(stmt map[string][]string) []string {
	modules := make([]string, 0, len(stmt))
	for m := range stmt {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	return modules
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
