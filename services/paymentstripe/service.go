package paymentstripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v74"

	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/mylog"
	"github.com/samadsayyed/donation-portal-sub000/lib/myvault"
	"github.com/samadsayyed/donation-portal-sub000/services/donationapi"
	"github.com/samadsayyed/donation-portal-sub000/services/payment"
)

type service struct {
	payer  Payer
	vault  myvault.VaultReader
	logger mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(payer Payer, vault myvault.VaultReader, logger mylog.Logger) *service {
	return &service{
		payer:  payer,
		vault:  vault,
		logger: logger,
	}
}

// createPaymentIntent opens the gateway side of a donation. Nothing is
// recorded here: the donation record only exists once the confirmation
// arrives at the shared payment core.
func (s *service) createPaymentIntent(c context.Context, owner donationapi.Owner, referenceNo string,
	amountInPence int64, currency string, coverFee bool) (string, int64, error) {

	err := owner.Validate()
	if err != nil {
		return "", 0, err
	}
	if referenceNo == "" {
		return "", 0, myerrors.NewInvalidInputErrorf("payment intent without reference")
	}
	if amountInPence <= 0 {
		return "", 0, myerrors.NewInvalidInputErrorf("donation amount must be positive")
	}
	if currency == "" {
		currency = "GBP"
	}

	credentials, found, err := s.vault.Get(c, myvault.StripeCredentials)
	if err != nil {
		return "", 0, myerrors.NewInternalError(fmt.Errorf("error fetching stripe credentials: %s", err))
	}
	if !found || credentials.APIKey == "" {
		return "", 0, myerrors.NewUnavailableError(fmt.Errorf("stripe is not configured"))
	}
	s.payer.UseAPIKey(credentials.APIKey)

	total := payment.TotalWithFee(payment.MethodStripe, amountInPence, coverFee)

	s.logger.Log(c, referenceNo, mylog.SeverityInfo, "Creating payment intent of %d for reference %s", total, referenceNo)

	intent, err := s.payer.CreatePaymentIntent(c, stripe.PaymentIntentParams{
		Params: stripe.Params{
			Metadata: map[string]string{
				"reference_no": referenceNo,
				"owner_uid":    owner.UID(),
			},
		},
		Amount:   stripe.Int64(total),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	})
	if err != nil {
		return "", 0, err
	}

	return intent.ClientSecret, total, nil
}
