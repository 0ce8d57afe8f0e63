package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quickhire-gh/quickhire/internal/payment"
)

// MockProvider satisfies payment.Provider for testing.
type MockProvider struct {
	InitializeChargeFunc func(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error)
	VerifyChargeFunc     func(ctx context.Context, reference string) (payment.VerifyResult, error)
	ReleasePayoutFunc    func(ctx context.Context, req payment.PayoutRequest) (payment.PayoutResult, error)
	RefundFunc           func(ctx context.Context, req payment.RefundRequest) (payment.RefundResult, error)
	SignatureValid       bool

	mu      sync.Mutex
	Charges []payment.ChargeRequest
	Payouts []payment.PayoutRequest
	Refunds []payment.RefundRequest
}

func (m *MockProvider) InitializeCharge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	m.mu.Lock()
	m.Charges = append(m.Charges, req)
	m.mu.Unlock()
	if m.InitializeChargeFunc != nil {
		return m.InitializeChargeFunc(ctx, req)
	}
	return payment.ChargeResult{
		Reference:        req.Reference,
		AuthorizationURL: "https://checkout.example.test/" + req.Reference,
		AccessCode:       "mock-access",
	}, nil
}

func (m *MockProvider) VerifyCharge(ctx context.Context, reference string) (payment.VerifyResult, error) {
	if m.VerifyChargeFunc != nil {
		return m.VerifyChargeFunc(ctx, reference)
	}
	return payment.VerifyResult{
		Reference:     reference,
		Settled:       true,
		TransactionID: "mock-txn",
		Channel:       "mobile_money",
		PaidAt:        time.Now().UTC(),
	}, nil
}

func (m *MockProvider) ReleasePayout(ctx context.Context, req payment.PayoutRequest) (payment.PayoutResult, error) {
	m.mu.Lock()
	m.Payouts = append(m.Payouts, req)
	m.mu.Unlock()
	if m.ReleasePayoutFunc != nil {
		return m.ReleasePayoutFunc(ctx, req)
	}
	return payment.PayoutResult{TransferCode: "mock-transfer", Status: "success"}, nil
}

func (m *MockProvider) Refund(ctx context.Context, req payment.RefundRequest) (payment.RefundResult, error) {
	m.mu.Lock()
	m.Refunds = append(m.Refunds, req)
	m.mu.Unlock()
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, req)
	}
	return payment.RefundResult{RefundID: "mock-refund", Status: "processed"}, nil
}

func (m *MockProvider) VerifyWebhookSignature(payload []byte, signature string) bool {
	return m.SignatureValid
}

// PayoutCount returns how many payouts the provider has been asked for.
func (m *MockProvider) PayoutCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Payouts)
}

// RefundCount returns how many refunds the provider has been asked for.
func (m *MockProvider) RefundCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Refunds)
}

// NewMockProvider returns a MockProvider that succeeds on every call.
func NewMockProvider() *MockProvider {
	return &MockProvider{SignatureValid: true}
}

// NewFailingProvider returns a MockProvider where every call returns err.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		InitializeChargeFunc: func(_ context.Context, _ payment.ChargeRequest) (payment.ChargeResult, error) {
			return payment.ChargeResult{}, err
		},
		VerifyChargeFunc: func(_ context.Context, _ string) (payment.VerifyResult, error) {
			return payment.VerifyResult{}, err
		},
		ReleasePayoutFunc: func(_ context.Context, _ payment.PayoutRequest) (payment.PayoutResult, error) {
			return payment.PayoutResult{}, err
		},
		RefundFunc: func(_ context.Context, _ payment.RefundRequest) (payment.RefundResult, error) {
			return payment.RefundResult{}, err
		},
	}
}

// NewUnsettledProvider returns a MockProvider whose charges never settle.
func NewUnsettledProvider() *MockProvider {
	return &MockProvider{
		SignatureValid: true,
		VerifyChargeFunc: func(_ context.Context, reference string) (payment.VerifyResult, error) {
			return payment.VerifyResult{Reference: reference, Settled: false}, nil
		},
	}
}

var _ payment.Provider = (*MockProvider)(nil)

// Reference builds a deterministic mock payment reference.
func Reference(seed int) string {
	return fmt.Sprintf("QH-MOCK-%06d", seed)
}
