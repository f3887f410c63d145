package diag

import (
	"fmt"
)

// Code is a compact numeric diagnostic identifier with a stable string form.
// Ranges are reserved per phase so new codes never collide:
//
//	1000 — name collection and path resolution
//	2000 — type checking
//	3000 — lowering passes (const propagation, unrolling, monomorphization)
//	9000 — compiler-internal
type Code uint16

const (
	UnknownCode Code = 0

	// Collection / resolution
	CollectInfo             Code = 1000
	CollectDuplicateSymbol  Code = 1001
	CollectDuplicateStruct  Code = 1002
	CollectDuplicateMapping Code = 1003
	CollectDuplicateStorage Code = 1004
	CollectDuplicateConst   Code = 1005
	ResolveUnknownType      Code = 1101
	ResolveUnknownFunction  Code = 1102
	ResolveUnknownProgram   Code = 1103
	ResolveUnknownStruct    Code = 1104
	ResolveUnknownMapping   Code = 1105

	// Type checking
	TypeInfo                 Code = 2000
	TypeMismatch             Code = 2001
	TypeUnknownVariable      Code = 2002
	TypeInvalidBinaryOps     Code = 2003
	TypeInvalidUnaryOp       Code = 2004
	TypeInvalidCast          Code = 2005
	TypeConditionNotBool     Code = 2006
	TypeNotAnArray           Code = 2007
	TypeNotATuple            Code = 2008
	TypeNotAComposite        Code = 2009
	TypeUnknownMember        Code = 2010
	TypeMissingMember        Code = 2011
	TypeArityMismatch        Code = 2012
	TypeConstArityMismatch   Code = 2013
	TypeTupleIndexOutOfRange Code = 2014
	TypeAssignToConst        Code = 2015
	TypeAwaitNotFuture       Code = 2016
	TypeAwaitDuplicate       Code = 2017
	TypeAwaitMissing         Code = 2018
	TypeFinalizerTakesFuture Code = 2019
	TypeReturnMismatch       Code = 2020
	TypeLiteralOutOfRange    Code = 2021

	// Lowering (const propagation, unrolling, monomorphization, flattening)
	LowerInfo                  Code = 3000
	LowerConstNotEvaluable     Code = 3001
	LowerArrayLengthNotLiteral Code = 3002
	LowerArrayIndexNotLiteral  Code = 3003
	LowerRepeatCountNotLiteral Code = 3004
	LowerLoopBoundNotLiteral   Code = 3005
	LowerGenericArgNotLiteral  Code = 3006
	LowerNonStaticBranch       Code = 3007
	LowerFoldOverflow          Code = 3008
	LowerFoldDivByZero         Code = 3009
	LowerLoopRangeEmpty        Code = 3010
	LowerRecursiveCall         Code = 3011

	// Internal
	InternalError Code = 9000
	ObsTimings    Code = 9001
)

// String renders codes in the LUM0000 form used in CLI output and tests.
func (c Code) String() string {
	return fmt.Sprintf("LUM%04d", uint16(c))
}
