package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arcadia-retail/arcadia/internal/shared"
)

// AuditPort records business-audit events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

func (s *Service) Create(ctx context.Context, req CreatePurchaseRequest, createdBy int64) (Purchase, error) {
	subtotal := decimal.Zero
	tax := decimal.Zero
	var items []PurchaseItem
	for i, itemReq := range req.Items {
		if !itemReq.Quantity.IsPositive() || itemReq.UnitCost.IsNegative() {
			return Purchase{}, fmt.Errorf("procurement: invalid quantity or cost on item %d", i+1)
		}
		if itemReq.IsAsset && (itemReq.UsefulLifeMonths == nil || *itemReq.UsefulLifeMonths <= 0) {
			return Purchase{}, ErrBadAssetItem
		}
		net := itemReq.Quantity.Mul(itemReq.UnitCost).Round(2)
		lineTax := net.Mul(itemReq.TaxPercent).Div(decimal.NewFromInt(100)).Round(2)
		items = append(items, PurchaseItem{
			ProductID:          itemReq.ProductID,
			Description:        itemReq.Description,
			Quantity:           itemReq.Quantity,
			UnitCost:           itemReq.UnitCost,
			TaxPercent:         itemReq.TaxPercent,
			TaxAmount:          lineTax,
			LineTotal:          net.Add(lineTax),
			IsAsset:            itemReq.IsAsset,
			DepreciationMethod: itemReq.DepreciationMethod,
			UsefulLifeMonths:   itemReq.UsefulLifeMonths,
			SalvageValue:       itemReq.SalvageValue,
			SerialNumber:       itemReq.SerialNumber,
			RegistrationNumber: itemReq.RegistrationNumber,
			Location:           itemReq.Location,
			CustodianID:        itemReq.CustodianID,
		})
		subtotal = subtotal.Add(net)
		tax = tax.Add(lineTax)
	}

	var purchaseID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		docNumber, err := repo.GenerateNumber(ctx, req.BranchID, req.OrderDate)
		if err != nil {
			return fmt.Errorf("generate doc number: %w", err)
		}
		purchaseID, err = repo.CreatePurchase(ctx, Purchase{
			DocNumber:   docNumber,
			BranchID:    req.BranchID,
			SupplierID:  req.SupplierID,
			OrderDate:   req.OrderDate,
			Status:      PurchaseStatusOrdered,
			Subtotal:    subtotal,
			TaxAmount:   tax,
			TotalAmount: subtotal.Add(tax),
			AmountPaid:  decimal.Zero,
			Notes:       req.Notes,
			CreatedBy:   createdBy,
		})
		if err != nil {
			return fmt.Errorf("create purchase: %w", err)
		}
		for _, item := range items {
			item.PurchaseID = purchaseID
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert purchase item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	s.record(ctx, createdBy, "purchase.create", purchaseID, nil)
	return s.repo.GetPurchase(ctx, purchaseID)
}

// RecordPayment registers a supplier payment. The guard keeps the sum of
// payments within the purchase total.
func (s *Service) RecordPayment(ctx context.Context, req RecordPaymentRequest, recordedBy int64) (Payment, error) {
	if !req.Amount.IsPositive() {
		return Payment{}, fmt.Errorf("procurement: payment amount must be positive")
	}
	var payment Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		purchase, err := repo.GetPurchase(ctx, req.PurchaseID)
		if err != nil {
			return err
		}
		if purchase.Status == PurchaseStatusPaid {
			return ErrAlreadySettled
		}
		amount := req.Amount.Round(2)
		if amount.GreaterThan(purchase.Outstanding()) {
			return ErrOverpayment
		}
		payment, err = repo.InsertPayment(ctx, Payment{
			PurchaseID: purchase.ID,
			Amount:     amount,
			Method:     req.Method,
			Reference:  req.Reference,
			PaidAt:     s.now(),
			RecordedBy: recordedBy,
		})
		if err != nil {
			return err
		}
		paid := purchase.AmountPaid.Add(amount)
		status := PurchaseStatusPartial
		if paid.GreaterThanOrEqual(purchase.TotalAmount) {
			status = PurchaseStatusPaid
		}
		return repo.UpdatePayment(ctx, purchase.ID, paid, status)
	})
	if err != nil {
		return Payment{}, err
	}
	s.record(ctx, recordedBy, "purchase.payment", payment.PurchaseID, map[string]any{
		"amount": payment.Amount.String(),
		"method": payment.Method,
	})
	return payment, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Purchase, error) {
	return s.repo.GetPurchase(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListPurchasesRequest) ([]Purchase, int, error) {
	return s.repo.ListPurchases(ctx, req)
}

func (s *Service) Payments(ctx context.Context, purchaseID int64) ([]Payment, error) {
	if _, err := s.repo.GetPurchase(ctx, purchaseID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, purchaseID)
}

// AssetItems lists the asset-flagged items of a purchase, for capitalization.
func (s *Service) AssetItems(ctx context.Context, purchaseID int64) ([]PurchaseItem, error) {
	if _, err := s.repo.GetPurchase(ctx, purchaseID); err != nil {
		return nil, err
	}
	return s.repo.AssetItems(ctx, purchaseID)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "purchase",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
		At:       s.now(),
	})
}
