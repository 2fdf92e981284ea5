package movement

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/noblepay-ledger/internal/domain/account"
	"github.com/noblepay-ledger/internal/domain/catalog"
	"github.com/noblepay-ledger/internal/domain/fx"
	"github.com/noblepay-ledger/internal/domain/ledger"
	"github.com/noblepay-ledger/internal/domain/provider"
	"github.com/noblepay-ledger/internal/domain/shared"
	"github.com/noblepay-ledger/internal/reference"
	"github.com/shopspring/decimal"
)

// Fund credits the owner's account from an external funding method
func (o *Orchestrator) Fund(ctx context.Context, req FundRequest) (*Result, error) {
	m := &movement{
		operation:      OperationFund,
		kind:           ledger.KindFunding,
		direction:      ledger.DirectionCredit,
		prefix:         reference.PrefixFund,
		ownerID:        req.OwnerID,
		accountID:      req.AccountID,
		amount:         req.Amount,
		description:    "Wallet funding via " + string(req.Method),
		idempotencyKey: req.IdempotencyKey,
		validate:       req.Validate,
	}

	m.apply = func(ctx context.Context, u *unit, ref string, at time.Time) (*Result, error) {
		acc, err := o.lockOwned(ctx, u, m, req.OwnerID, req.AccountID)
		if err != nil {
			return nil, err
		}

		balance, err := o.mutator.Credit(ctx, u.accounts, acc, req.Amount)
		if err != nil {
			return nil, err
		}

		_, err = o.recorder.record(ctx, u, at, ledger.Draft{
			AccountID:      acc.ID,
			OwnerID:        req.OwnerID,
			Kind:           m.kind,
			Direction:      m.direction,
			Amount:         req.Amount,
			Fee:            decimal.Zero,
			Currency:       acc.Currency,
			Reference:      ref,
			IdempotencyKey: req.IdempotencyKey,
			Description:    m.description,
			Metadata:       map[string]interface{}{"method": string(req.Method)},
		})
		if err != nil {
			return nil, err
		}

		return &Result{
			Reference:    ref,
			Kind:         m.kind,
			AccountID:    acc.ID,
			Amount:       req.Amount,
			Fee:          decimal.Zero,
			TotalDebited: decimal.Zero,
			Currency:     acc.Currency,
			NewBalance:   balance,
			CompletedAt:  at,
		}, nil
	}

	return o.execute(ctx, m)
}

// Transfer pays another wallet holder. The sender's debit carries the
// reference and the recipient's credit carries its counterpart. A recipient
// holding another currency is credited the converted amount.
func (o *Orchestrator) Transfer(ctx context.Context, req TransferRequest) (*Result, error) {
	prefix := reference.PrefixPay
	channel := req.Channel
	if channel == "" {
		channel = ChannelP2P
	}
	if channel == ChannelQR {
		prefix = reference.PrefixQR
	}
	description := req.Note
	if description == "" {
		description = "Transfer"
	}

	m := &movement{
		operation:      OperationTransfer,
		kind:           ledger.KindTransfer,
		direction:      ledger.DirectionDebit,
		prefix:         prefix,
		ownerID:        req.OwnerID,
		accountID:      req.SourceAccountID,
		amount:         req.Amount,
		description:    description,
		idempotencyKey: req.IdempotencyKey,
		validate:       req.Validate,
	}

	m.apply = func(ctx context.Context, u *unit, ref string, at time.Time) (*Result, error) {
		sourceID, err := o.sourceID(ctx, u, req.OwnerID, req.SourceAccountID)
		if err != nil {
			return nil, err
		}
		// A named source owned by someone else is not found, even when it is
		// also the recipient's wallet.
		if req.SourceAccountID != uuid.Nil {
			source, err := u.accounts.GetByID(ctx, sourceID)
			if err != nil {
				return nil, err
			}
			if source.OwnerID != req.OwnerID {
				return nil, account.ErrAccountNotFound{AccountID: sourceID}
			}
		}
		recipient, err := o.resolveRecipient(ctx, u, req.Destination)
		if err != nil {
			return nil, err
		}
		if recipient.OwnerID == req.OwnerID || recipient.ID == sourceID {
			return nil, ErrSelfOperationNotAllowed
		}

		locked, err := o.mutator.Lock(ctx, u.accounts, sourceID, recipient.ID)
		if err != nil {
			return nil, err
		}
		source, dest := locked[sourceID], locked[recipient.ID]
		if source.OwnerID != req.OwnerID {
			return nil, account.ErrAccountNotFound{AccountID: sourceID}
		}
		m.accountID, m.currency = source.ID, source.Currency

		credited := req.Amount
		var rate decimal.NullDecimal
		if source.Currency != dest.Currency {
			conversion, err := fx.Convert(ctx, u.rates, req.Amount, source.Currency, dest.Currency)
			if err != nil {
				return nil, err
			}
			if !conversion.Amount.IsPositive() {
				return nil, ValidationError{Field: "amount", Message: "too small to convert to " + dest.Currency}
			}
			credited = conversion.Amount
			rate = decimal.NewNullDecimal(conversion.Rate)
		}

		balance, err := o.mutator.Debit(ctx, u.accounts, source, req.Amount)
		if err != nil {
			return nil, err
		}
		if _, err := o.mutator.Credit(ctx, u.accounts, dest, credited); err != nil {
			return nil, err
		}

		counterpart := ledger.CounterpartReference(ref)
		_, err = o.recorder.record(ctx, u, at,
			ledger.Draft{
				AccountID:      source.ID,
				OwnerID:        source.OwnerID,
				Kind:           m.kind,
				Direction:      ledger.DirectionDebit,
				Amount:         req.Amount,
				Fee:            decimal.Zero,
				Currency:       source.Currency,
				Rate:           rate,
				Reference:      ref,
				IdempotencyKey: req.IdempotencyKey,
				Description:    description,
				Metadata: map[string]interface{}{
					"channel":                 string(channel),
					"counterparty_account_id": dest.ID.String(),
					"counterparty_owner_id":   dest.OwnerID.String(),
					"counterpart_reference":   counterpart,
				},
			},
			ledger.Draft{
				AccountID:   dest.ID,
				OwnerID:     dest.OwnerID,
				Kind:        m.kind,
				Direction:   ledger.DirectionCredit,
				Amount:      credited,
				Fee:         decimal.Zero,
				Currency:    dest.Currency,
				Rate:        rate,
				Reference:   counterpart,
				Description: description,
				Metadata: map[string]interface{}{
					"channel":                 string(channel),
					"counterparty_account_id": source.ID.String(),
					"counterparty_owner_id":   source.OwnerID.String(),
					"counterpart_reference":   ref,
				},
			},
		)
		if err != nil {
			return nil, err
		}

		result := &Result{
			Reference:            ref,
			CounterpartReference: counterpart,
			Kind:                 m.kind,
			AccountID:            source.ID,
			Amount:               req.Amount,
			Fee:                  decimal.Zero,
			TotalDebited:         req.Amount,
			Currency:             source.Currency,
			NewBalance:           balance,
			CompletedAt:          at,
		}
		if rate.Valid {
			result.Rate = &rate.Decimal
			result.PayoutAmount = &credited
			result.PayoutCurrency = dest.Currency
		}
		return result, nil
	}

	return o.execute(ctx, m)
}

// PayBill pays an active bill issuer from the owner's account
func (o *Orchestrator) PayBill(ctx context.Context, req BillPaymentRequest) (*Result, error) {
	m := &movement{
		operation:      OperationPayBill,
		kind:           ledger.KindBill,
		direction:      ledger.DirectionDebit,
		prefix:         reference.PrefixBill,
		ownerID:        req.OwnerID,
		accountID:      req.SourceAccountID,
		amount:         req.Amount,
		description:    "Bill payment",
		idempotencyKey: req.IdempotencyKey,
		validate:       req.Validate,
	}

	m.apply = func(ctx context.Context, u *unit, ref string, at time.Time) (*Result, error) {
		prov, err := o.activeProvider(ctx, req.ProviderID, provider.KindBill)
		if err != nil {
			return nil, err
		}
		m.description = "Bill payment to " + prov.Name

		return o.payProvider(ctx, u, m, ref, at, req.OwnerID, req.SourceAccountID, req.Amount, map[string]interface{}{
			"provider_id":    prov.ID.String(),
			"provider_name":  prov.Name,
			"category":       prov.Category,
			"account_number": req.AccountNumber,
		})
	}

	return o.execute(ctx, m)
}

// TopUpMobile sends money to a phone number on an active mobile-money network
func (o *Orchestrator) TopUpMobile(ctx context.Context, req TopUpRequest) (*Result, error) {
	m := &movement{
		operation:      OperationTopUp,
		kind:           ledger.KindTopUp,
		direction:      ledger.DirectionDebit,
		prefix:         reference.PrefixTopUp,
		ownerID:        req.OwnerID,
		accountID:      req.SourceAccountID,
		amount:         req.Amount,
		description:    "Mobile money top-up",
		idempotencyKey: req.IdempotencyKey,
		validate:       req.Validate,
	}

	m.apply = func(ctx context.Context, u *unit, ref string, at time.Time) (*Result, error) {
		prov, err := o.activeProvider(ctx, req.ProviderID, provider.KindMobileMoney)
		if err != nil {
			return nil, err
		}
		m.description = prov.Name + " top-up to " + req.PhoneNumber

		return o.payProvider(ctx, u, m, ref, at, req.OwnerID, req.SourceAccountID, req.Amount, map[string]interface{}{
			"provider_id":   prov.ID.String(),
			"provider_name": prov.Name,
			"phone_number":  req.PhoneNumber,
		})
	}

	return o.execute(ctx, m)
}

// Remit sends money abroad. The fee is charged in the source currency on
// top of the amount; the recipient is paid the amount converted at the
// captured rate.
func (o *Orchestrator) Remit(ctx context.Context, req RemitRequest) (*Result, error) {
	description := req.Purpose
	if description == "" {
		description = "Money transfer to " + req.RecipientName
	}

	m := &movement{
		operation:      OperationRemit,
		kind:           ledger.KindRemittance,
		direction:      ledger.DirectionDebit,
		prefix:         reference.PrefixRemit,
		ownerID:        req.OwnerID,
		accountID:      req.SourceAccountID,
		amount:         req.Amount,
		description:    description,
		idempotencyKey: req.IdempotencyKey,
		validate:       req.Validate,
	}

	m.apply = func(ctx context.Context, u *unit, ref string, at time.Time) (*Result, error) {
		source, err := o.lockOwned(ctx, u, m, req.OwnerID, req.SourceAccountID)
		if err != nil {
			return nil, err
		}

		fee := o.fees.RemitFee(req.Amount)
		m.fee = fee
		conversion, err := fx.Convert(ctx, u.rates, req.Amount, source.Currency, req.Currency)
		if err != nil {
			return nil, err
		}
		if !conversion.Amount.IsPositive() {
			return nil, ValidationError{Field: "amount", Message: "too small to convert to " + req.Currency}
		}

		total := req.Amount.Add(fee)
		balance, err := o.mutator.Debit(ctx, u.accounts, source, total)
		if err != nil {
			return nil, err
		}

		_, err = o.recorder.record(ctx, u, at, ledger.Draft{
			AccountID:      source.ID,
			OwnerID:        req.OwnerID,
			Kind:           m.kind,
			Direction:      m.direction,
			Amount:         req.Amount,
			Fee:            fee,
			Currency:       source.Currency,
			Rate:           decimal.NewNullDecimal(conversion.Rate),
			Reference:      ref,
			IdempotencyKey: req.IdempotencyKey,
			Description:    description,
			Metadata: map[string]interface{}{
				"recipient_phone":   req.RecipientPhone,
				"recipient_name":    req.RecipientName,
				"recipient_country": req.RecipientCountry,
				"payout_amount":     conversion.Amount.String(),
				"payout_currency":   req.Currency,
				"purpose":           req.Purpose,
			},
		})
		if err != nil {
			return nil, err
		}

		rate, payout := conversion.Rate, conversion.Amount
		return &Result{
			Reference:      ref,
			Kind:           m.kind,
			AccountID:      source.ID,
			Amount:         req.Amount,
			Fee:            fee,
			TotalDebited:   total,
			Currency:       source.Currency,
			Rate:           &rate,
			PayoutAmount:   &payout,
			PayoutCurrency: req.Currency,
			NewBalance:     balance,
			CompletedAt:    at,
		}, nil
	}

	return o.execute(ctx, m)
}

// Purchase checks out a basket against the owner's wallet. Stock is reserved
// under row locks in product ID order; one short line aborts the whole order.
func (o *Orchestrator) Purchase(ctx context.Context, req PurchaseRequest) (*Result, error) {
	m := &movement{
		operation:      OperationPurchase,
		kind:           ledger.KindPurchase,
		direction:      ledger.DirectionDebit,
		prefix:         reference.PrefixPurchase,
		ownerID:        req.OwnerID,
		accountID:      req.SourceAccountID,
		description:    "Marketplace purchase",
		idempotencyKey: req.IdempotencyKey,
		validate:       req.Validate,
	}

	m.apply = func(ctx context.Context, u *unit, ref string, at time.Time) (*Result, error) {
		source, err := o.lockOwned(ctx, u, m, req.OwnerID, req.SourceAccountID)
		if err != nil {
			return nil, err
		}

		items := req.merged()
		slices.SortFunc(items, func(a, b LineItem) int {
			return bytes.Compare(a.ProductID[:], b.ProductID[:])
		})

		total := decimal.Zero
		rates := make(map[string]decimal.Decimal)
		orderItems := make([]catalog.OrderItem, 0, len(items))
		for _, item := range items {
			product, err := u.products.LockForUpdate(ctx, item.ProductID)
			if err != nil {
				return nil, err
			}
			if !product.Active {
				return nil, catalog.ErrProductNotFound{ProductID: product.ID}
			}
			if err := product.Reserve(item.Quantity); err != nil {
				return nil, err
			}

			lineTotal := shared.RoundMoney(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			if product.Currency != source.Currency {
				conversion, err := fx.Convert(ctx, u.rates, lineTotal, product.Currency, source.Currency)
				if err != nil {
					return nil, err
				}
				lineTotal = conversion.Amount
				rates[product.Currency] = conversion.Rate
			}

			if err := u.products.UpdateStock(ctx, product.ID, product.Stock); err != nil {
				return nil, err
			}

			orderItems = append(orderItems, catalog.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				Quantity:  item.Quantity,
				UnitPrice: product.Price,
				Currency:  product.Currency,
				LineTotal: lineTotal,
			})
			total = total.Add(lineTotal)
		}
		if !total.IsPositive() {
			return nil, ValidationError{Field: "items", Message: "order total must be positive"}
		}
		m.amount = total

		balance, err := o.mutator.Debit(ctx, u.accounts, source, total)
		if err != nil {
			return nil, err
		}

		orderID := uuid.New()
		var rate decimal.NullDecimal
		appliedRates := make(map[string]interface{}, len(rates))
		for currency, r := range rates {
			rate = decimal.NewNullDecimal(r)
			appliedRates[currency] = r.String()
		}
		if len(rates) != 1 {
			rate = decimal.NullDecimal{}
		}

		_, err = o.recorder.record(ctx, u, at, ledger.Draft{
			AccountID:      source.ID,
			OwnerID:        req.OwnerID,
			Kind:           m.kind,
			Direction:      m.direction,
			Amount:         total,
			Fee:            decimal.Zero,
			Currency:       source.Currency,
			Rate:           rate,
			Reference:      ref,
			IdempotencyKey: req.IdempotencyKey,
			Description:    m.description,
			Metadata: map[string]interface{}{
				"order_id":   orderID.String(),
				"line_items": len(orderItems),
				"rates":      appliedRates,
			},
		})
		if err != nil {
			return nil, err
		}

		order := &catalog.Order{
			ID:            orderID,
			OwnerID:       req.OwnerID,
			AccountID:     source.ID,
			Reference:     ref,
			Total:         total,
			Currency:      source.Currency,
			PaymentMethod: catalog.PaymentMethodWallet,
			Status:        catalog.OrderStatusPaid,
			Items:         orderItems,
			CreatedAt:     at,
		}
		if err := u.orders.Create(ctx, order); err != nil {
			return nil, err
		}

		result := &Result{
			Reference:    ref,
			Kind:         m.kind,
			AccountID:    source.ID,
			Amount:       total,
			Fee:          decimal.Zero,
			TotalDebited: total,
			Currency:     source.Currency,
			NewBalance:   balance,
			OrderID:      &orderID,
			OrderTotal:   &total,
			CompletedAt:  at,
		}
		if rate.Valid {
			result.Rate = &rate.Decimal
		}
		return result, nil
	}

	return o.execute(ctx, m)
}

// payProvider debits the source for a payment to an external provider,
// which holds no balance in this ledger
func (o *Orchestrator) payProvider(ctx context.Context, u *unit, m *movement, ref string, at time.Time, ownerID, sourceID uuid.UUID, amount decimal.Decimal, metadata map[string]interface{}) (*Result, error) {
	source, err := o.lockOwned(ctx, u, m, ownerID, sourceID)
	if err != nil {
		return nil, err
	}

	balance, err := o.mutator.Debit(ctx, u.accounts, source, amount)
	if err != nil {
		return nil, err
	}

	_, err = o.recorder.record(ctx, u, at, ledger.Draft{
		AccountID:      source.ID,
		OwnerID:        ownerID,
		Kind:           m.kind,
		Direction:      m.direction,
		Amount:         amount,
		Fee:            decimal.Zero,
		Currency:       source.Currency,
		Reference:      ref,
		IdempotencyKey: m.idempotencyKey,
		Description:    m.description,
		Metadata:       metadata,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Reference:    ref,
		Kind:         m.kind,
		AccountID:    source.ID,
		Amount:       amount,
		Fee:          decimal.Zero,
		TotalDebited: amount,
		Currency:     source.Currency,
		NewBalance:   balance,
		CompletedAt:  at,
	}, nil
}

// sourceID returns the requested account, or the owner's primary wallet when none was given
func (o *Orchestrator) sourceID(ctx context.Context, u *unit, ownerID, accountID uuid.UUID) (uuid.UUID, error) {
	if accountID != uuid.Nil {
		return accountID, nil
	}
	wallet, err := u.accounts.FindPrimaryWallet(ctx, ownerID)
	if err != nil {
		return uuid.Nil, err
	}
	return wallet.ID, nil
}

// lockOwned locks the source account and checks it belongs to the owner.
// Someone else's account is reported as not found.
func (o *Orchestrator) lockOwned(ctx context.Context, u *unit, m *movement, ownerID, accountID uuid.UUID) (*account.Account, error) {
	id, err := o.sourceID(ctx, u, ownerID, accountID)
	if err != nil {
		return nil, err
	}
	locked, err := o.mutator.Lock(ctx, u.accounts, id)
	if err != nil {
		return nil, err
	}
	acc := locked[id]
	if acc.OwnerID != ownerID {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	m.accountID, m.currency = acc.ID, acc.Currency
	return acc, nil
}

// resolveRecipient finds the credited account without locking it
func (o *Orchestrator) resolveRecipient(ctx context.Context, u *unit, dest Destination) (*account.Account, error) {
	var (
		acc *account.Account
		err error
	)
	if dest.AccountID != uuid.Nil {
		acc, err = u.accounts.GetByID(ctx, dest.AccountID)
	} else {
		acc, err = u.accounts.FindPrimaryWallet(ctx, dest.OwnerID)
	}
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}
	if dest.OwnerID != uuid.Nil && acc.OwnerID != dest.OwnerID {
		return nil, ErrRecipientNotFound
	}
	return acc, nil
}

// activeProvider returns the provider when it exists, is active and is of kind
func (o *Orchestrator) activeProvider(ctx context.Context, id uuid.UUID, kind provider.Kind) (*provider.Provider, error) {
	prov, err := o.providers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !prov.Active || prov.Kind != kind {
		return nil, provider.ErrProviderNotFound{ProviderID: id}
	}
	return prov, nil
}
