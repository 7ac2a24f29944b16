package spider

import "errors"

var (
	// ErrRuleNotFound reports that no crawler rule matched an identifier.
	ErrRuleNotFound = errors.New("no crawler rule matched")
	// ErrAmbiguousRule reports that more than one rule matched under the
	// find-all strategy; automatic selection is never resolved silently.
	ErrAmbiguousRule = errors.New("more than one crawler rule matched")
	// ErrSchemaViolation reports a __schema__ rule that did not evaluate
	// to true. It aborts the whole tree evaluation.
	ErrSchemaViolation = errors.New("schema rule not satisfied")
	// ErrInvalidSchema reports a parse callback veto.
	ErrInvalidSchema = errors.New("result rejected by parse callback")
)
