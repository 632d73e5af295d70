// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package governance

import "github.com/vechain/scoreloop/deploy"

// Flags are the attributes of a contract method.
type Flags uint8

// Method flags.
const (
	External Flags = 1 << iota
	ReadOnly
	Payable
	EventLog
)

// Call identifies a governance method.
type Call int

// Governance methods.
const (
	CallFallback Call = iota
	CallGetVersion
	CallGetStepPrice
	CallGetStepCosts
	CallGetMaxStepLimit
	CallGetRevision
	CallGetScoreStatus
	CallIsAuditor
	CallIsInScoreBlackList
	CallIsInImportWhiteList
	CallAcceptScore
	CallRejectScore
	CallAddAuditor
	CallRemoveAuditor
	CallSetStepPrice
	CallSetStepCost
	CallSetMaxStepLimit
	CallSetRevision
	CallAddToScoreBlackList
	CallRemoveFromScoreBlackList
	CallAddImportWhiteList
	CallRemoveImportWhiteList
	CallSetVersion
)

// Method describes a governance method. A zero MaxVersion leaves the method open ended.
type Method struct {
	Call       Call
	Name       string
	Flags      Flags
	MinVersion int
	MaxVersion int
}

// Methods is the method table of the governance contract.
var Methods = []Method{
	{CallFallback, "", External | Payable, deploy.GovernanceV1, 0},
	{CallGetVersion, "getVersion", External | ReadOnly, deploy.GovernanceV1, 0},
	{CallGetStepPrice, "getStepPrice", External | ReadOnly, deploy.GovernanceV1, 0},
	{CallGetStepCosts, "getStepCosts", External | ReadOnly, deploy.GovernanceV1, 0},
	{CallGetMaxStepLimit, "getMaxStepLimit", External | ReadOnly, deploy.GovernanceV1, 0},
	{CallGetRevision, "getRevision", External | ReadOnly, deploy.GovernanceV1, 0},
	{CallGetScoreStatus, "getScoreStatus", External | ReadOnly, deploy.GovernanceV1, 0},
	{CallIsAuditor, "isAuditor", External | ReadOnly, deploy.GovernanceV1, 0},
	{CallIsInScoreBlackList, "isInScoreBlackList", External | ReadOnly, deploy.GovernanceV1, 0},
	{CallIsInImportWhiteList, "isInImportWhiteList", External | ReadOnly, deploy.GovernanceV2, 0},
	{CallAcceptScore, "acceptScore", External | EventLog, deploy.GovernanceV1, 0},
	{CallRejectScore, "rejectScore", External | EventLog, deploy.GovernanceV1, 0},
	{CallAddAuditor, "addAuditor", External | EventLog, deploy.GovernanceV1, 0},
	{CallRemoveAuditor, "removeAuditor", External | EventLog, deploy.GovernanceV1, 0},
	{CallSetStepPrice, "setStepPrice", External | EventLog, deploy.GovernanceV1, 0},
	{CallSetStepCost, "setStepCost", External | EventLog, deploy.GovernanceV1, 0},
	{CallSetMaxStepLimit, "setMaxStepLimit", External | EventLog, deploy.GovernanceV1, 0},
	{CallSetRevision, "setRevision", External | EventLog, deploy.GovernanceV1, 0},
	{CallAddToScoreBlackList, "addToScoreBlackList", External | EventLog, deploy.GovernanceV1, 0},
	{CallRemoveFromScoreBlackList, "removeFromScoreBlackList", External | EventLog, deploy.GovernanceV1, 0},
	{CallAddImportWhiteList, "addImportWhiteList", External | EventLog, deploy.GovernanceV2, 0},
	{CallRemoveImportWhiteList, "removeImportWhiteList", External | EventLog, deploy.GovernanceV2, 0},
	{CallSetVersion, "setVersion", External | EventLog, deploy.GovernanceV1, 0},
}

// LookupMethod finds the method named name.
func LookupMethod(name string) (*Method, bool) {
	for i := range Methods {
		if Methods[i].Name == name {
			return &Methods[i], true
		}
	}
	return nil, false
}

// Available reports whether the method exists at the given governance version.
func (m *Method) Available(version int) bool {
	return version >= m.MinVersion && (m.MaxVersion == 0 || version <= m.MaxVersion)
}
