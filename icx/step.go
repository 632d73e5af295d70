// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package icx

// StepType names a metered operation.
type StepType string

// Step types.
const (
	StepTypeDefault          StepType = "default"
	StepTypeContractCall     StepType = "contractCall"
	StepTypeContractCreate   StepType = "contractCreate"
	StepTypeContractUpdate   StepType = "contractUpdate"
	StepTypeContractDestruct StepType = "contractDestruct"
	StepTypeContractSet      StepType = "contractSet"
	StepTypeGet              StepType = "get"
	StepTypeSet              StepType = "set"
	StepTypeReplace          StepType = "replace"
	StepTypeDelete           StepType = "delete"
	StepTypeInput            StepType = "input"
	StepTypeEventLog         StepType = "eventLog"
	StepTypeAPICall          StepType = "apiCall"
)

// AllStepTypes lists the step types in their canonical order.
var AllStepTypes = []StepType{
	StepTypeDefault,
	StepTypeContractCall,
	StepTypeContractCreate,
	StepTypeContractUpdate,
	StepTypeContractDestruct,
	StepTypeContractSet,
	StepTypeGet,
	StepTypeSet,
	StepTypeReplace,
	StepTypeDelete,
	StepTypeInput,
	StepTypeEventLog,
	StepTypeAPICall,
}

// IsValid reports whether t is a known step type.
func (t StepType) IsValid() bool {
	for _, v := range AllStepTypes {
		if v == t {
			return true
		}
	}
	return false
}

// AllowsNegative reports whether a cost of this type may be negative, i.e. a refund.
func (t StepType) AllowsNegative() bool {
	return t == StepTypeContractDestruct || t == StepTypeDelete
}

// ContextType distinguishes state-changing invocations from read-only queries.
type ContextType string

// Context types.
const (
	ContextTypeInvoke ContextType = "invoke"
	ContextTypeQuery  ContextType = "query"
)

// IsValid reports whether t is a known context type.
func (t ContextType) IsValid() bool {
	return t == ContextTypeInvoke || t == ContextTypeQuery
}
