package checkin

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/dev-brewery/koinon-rms-sub010/models"
)

// CodeAlphabet leaves out characters that are easy to misread on a label:
// 0/O and 1/I/L.
const CodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const DefaultCodeLength = 4

// CodeGenerator produces one candidate security code.
type CodeGenerator func() (string, error)

// RandomCodes draws codes from crypto/rand so one family cannot predict
// another's pickup code.
func RandomCodes(length int) CodeGenerator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	max := big.NewInt(int64(len(CodeAlphabet)))
	return func() (string, error) {
		buf := make([]byte, length)
		for i := range buf {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", fmt.Errorf("error reading random source: %w", err)
			}
			buf[i] = CodeAlphabet[n.Int64()]
		}
		return string(buf), nil
	}
}

// SecurityCodeAllocator reserves a code that no one else holds for the day.
type SecurityCodeAllocator struct {
	store       CodeStore
	clock       Clock
	generate    CodeGenerator
	maxAttempts int
}

func NewSecurityCodeAllocator(store CodeStore, clock Clock, generate CodeGenerator, maxAttempts int) *SecurityCodeAllocator {
	if generate == nil {
		generate = RandomCodes(DefaultCodeLength)
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultCodeAttempts
	}
	return &SecurityCodeAllocator{store: store, clock: clock, generate: generate, maxAttempts: maxAttempts}
}

// Allocate returns a reserved code for issueDate. Running out of attempts
// returns ErrConflict; uniqueness is never relaxed.
func (a *SecurityCodeAllocator) Allocate(ctx context.Context, issueDate models.Date) (*models.SecurityCode, error) {
	first, err := a.generate()
	if err != nil {
		return nil, err
	}

	writer := &UniqueRetryWriter[string, *models.SecurityCode]{
		Name:        "security code " + issueDate.String(),
		MaxAttempts: a.maxAttempts,
		Insert: func(ctx context.Context, code string) (*models.SecurityCode, error) {
			return a.store.InsertSecurityCode(ctx, code, issueDate, a.clock.Now())
		},
		Next: a.generate,
	}
	return writer.Write(ctx, first)
}
