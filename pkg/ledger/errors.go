package ledger

import "errors"

// ErrNotFound indicates the requested row does not exist in the ledger.
var ErrNotFound = errors.New("ledger: not found")

// ErrDuplicateProposal indicates an ActionRecord already exists for a
// proposal id, enforcing "one ActionRecord per Proposal" (I1) at insert
// time.
var ErrDuplicateProposal = errors.New("ledger: action record already exists for this proposal")
