// Package effects models the external side effects the governance core
// emits but never performs itself (spec.md §1, §5, §9: "Model as a queue
// of effect descriptors returned to the caller; the transport/ledger
// integration is pluggable behind an Effects interface"). Grounded on the
// teacher's EventBus broadcast-channel shape (api/dao_server.go), adapted
// from a websocket broadcaster to a deferred-effect queue (see
// DESIGN.md).
package effects

import "github.com/bockgov/governor/types"

// Kind tags the variants of Effect.
type Kind byte

const (
	KindNativeTransfer Kind = iota
	KindFungibleTransfer
	KindRemoteCall
	KindSelfUpgrade
	KindRemoteUpgrade
)

// FunctionCallAction is one call within a FunctionCall instruction's
// action list, per spec.md §3.
type FunctionCallAction struct {
	Method  string
	Args    []byte
	Deposit types.Balance
	Gas     uint64
}

// Effect is a single deferred action for the host ledger to perform after
// the request handler returns, per spec.md §5's reentrancy note. Exactly
// one group of fields is meaningful, selected by Kind.
type Effect struct {
	Kind Kind

	// KindNativeTransfer / KindFungibleTransfer
	Token  types.TokenID
	To     types.AccountID
	Amount types.Balance

	// KindRemoteCall
	Receiver types.AccountID
	Actions  []FunctionCallAction

	// KindSelfUpgrade / KindRemoteUpgrade
	CodeHash types.Hash
	// Receiver and Method reused for KindRemoteUpgrade; Method additionally
	// used as the remote method name.
	Method string
}

func NativeTransfer(to types.AccountID, amount types.Balance) Effect {
	return Effect{Kind: KindNativeTransfer, Token: types.NativeToken, To: to, Amount: amount}
}

func FungibleTransfer(token types.TokenID, to types.AccountID, amount types.Balance) Effect {
	return Effect{Kind: KindFungibleTransfer, Token: token, To: to, Amount: amount}
}

func RemoteCall(receiver types.AccountID, actions []FunctionCallAction) Effect {
	return Effect{Kind: KindRemoteCall, Receiver: receiver, Actions: actions}
}

func SelfUpgrade(codeHash types.Hash) Effect {
	return Effect{Kind: KindSelfUpgrade, CodeHash: codeHash}
}

func RemoteUpgrade(receiver types.AccountID, method string, codeHash types.Hash) Effect {
	return Effect{Kind: KindRemoteUpgrade, Receiver: receiver, Method: method, CodeHash: codeHash}
}

// Queue accumulates effects emitted during one request handler
// invocation. It never blocks on or performs the effects itself; the host
// drains it after the call returns, per spec.md §5.
type Queue struct {
	items []Effect
}

func (q *Queue) Push(e Effect) {
	q.items = append(q.items, e)
}

// Drain returns and clears all queued effects.
func (q *Queue) Drain() []Effect {
	out := q.items
	q.items = nil
	return out
}

// Len reports the number of queued, undrained effects.
func (q *Queue) Len() int {
	return len(q.items)
}
