package sequencer

import (
	"context"
	"fmt"

	"github.com/aretw0/drip/pkg/domain"
)

// SelectPaymentAmount creates a payment for amount, persists it and presents
// it to the host. When the engine is waiting on a ShowPixPayment step that
// step is satisfied and the script moves past it.
func (e *Engine) SelectPaymentAmount(ctx context.Context, amount float64) error {
	if e.payments == nil {
		e.logger.Info("Payment amount ignored, payments disabled", "amount", amount)
		return domain.ErrPaymentsDisabled
	}

	e.gate.Lock()
	defer e.gate.Unlock()

	e.mu.Lock()
	previous := e.state
	e.mu.Unlock()

	t, ok, err := e.acquire(true)
	if err != nil || !ok {
		return err
	}
	ctx, release := e.bind(ctx)
	defer release()

	fail := func(err error) error {
		e.logger.Error("Payment creation failed", "amount", amount, "err", err)
		e.mu.Lock()
		if e.holds(t) {
			e.state = previous
		}
		e.mu.Unlock()
		return err
	}

	if err := e.compose(ctx, domain.LabelTyping, domain.PaymentTypingDelay); err != nil {
		return fail(err)
	}

	req, err := e.payments.CreatePayment(ctx, amount)
	if err != nil {
		return fail(fmt.Errorf("failed to create payment: %w", err))
	}
	data := domain.PaymentData{
		QRImage: req.QRImage,
		QRText:  req.QRText,
		ID:      req.ID,
		Amount:  amount,
	}
	if err := e.store.SetPaymentData(ctx, data); err != nil {
		return fail(fmt.Errorf("failed to store payment: %w", err))
	}
	e.mu.Lock()
	e.attempts = 0
	e.mu.Unlock()
	e.logger.Info("Payment created", "payment_id", data.ID, "amount", amount)

	index := e.store.StepIndex(ctx)
	if step, err := e.script.Get(index); err == nil && step.Action == domain.ActionShowPixPayment {
		if err := e.store.SetStepIndex(ctx, index+1); err != nil {
			return fail(fmt.Errorf("failed to advance step: %w", err))
		}
		e.event(ctx, domain.EventStepComplete, index, step.Action, nil)
	}

	if err := e.sleep(ctx, domain.PixRevealDelay); err != nil {
		return fail(err)
	}
	e.showPix(ctx, data)
	e.continueAfter(t, domain.PixRevealDelay)
	return nil
}

// checkPayment is the reply gate of a WaitForPayment pause point.
func (e *Engine) checkPayment(ctx context.Context, gen uint64) error {
	data := e.store.PaymentData(ctx)
	if data == nil {
		e.logger.Warn("Payment check without payment data")
		return domain.ErrPaymentNotFound
	}

	status, err := e.payments.CheckPaymentStatus(ctx, data.ID)
	if err != nil {
		e.logger.Error("Payment status check failed", "payment_id", data.ID, "err", err)
		return fmt.Errorf("failed to check payment: %w", err)
	}

	index := e.store.StepIndex(ctx)
	if status.Paid() {
		e.logger.Info("Payment confirmed", "payment_id", data.ID, "step_index", index)
		e.mu.Lock()
		if e.gen == gen {
			e.attempts = 0
		}
		e.mu.Unlock()
		if err := e.confirm(ctx); err != nil {
			return err
		}
		return e.resume(ctx, gen, index, domain.StateWaitingForPayment, domain.StepSettle)
	}

	e.mu.Lock()
	e.attempts++
	attempt := e.attempts
	e.mu.Unlock()

	e.logger.Info("Payment not settled yet", "payment_id", data.ID, "status", status.Status, "attempt", attempt)
	reminder := e.script.PaymentReminder(attempt - 1)
	if reminder == "" {
		return nil
	}
	return e.say(ctx, reminder)
}
