package paymentpaypal

import (
	"context"
	"fmt"

	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/mylog"
	"github.com/samadsayyed/donation-portal-sub000/lib/myvault"
	"github.com/samadsayyed/donation-portal-sub000/services/donationapi"
	"github.com/samadsayyed/donation-portal-sub000/services/payment"
)

// Donations is the shared payment core that turns a capture into a
// terminal donation record
type Donations interface {
	CreateSingleDonation(c context.Context, owner donationapi.Owner, transactionID string,
		amountInPence int64, currency string, method string, referenceNo string, coveredFee string) (payment.DonationRecord, string, error)
}

type service struct {
	payer     Payer
	vault     myvault.VaultReader
	donations Donations
	logger    mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(payer Payer, vault myvault.VaultReader, donations Donations, logger mylog.Logger) *service {
	return &service{
		payer:     payer,
		vault:     vault,
		donations: donations,
		logger:    logger,
	}
}

// capture completes an approved paypal order and records the donation in
// one go. A capture that does not complete leaves no donation record.
func (s *service) capture(c context.Context, owner donationapi.Owner, orderID string, referenceNo string,
	amountInPence int64, currency string, coveredFee string) (payment.DonationRecord, string, error) {

	err := owner.Validate()
	if err != nil {
		return payment.DonationRecord{}, "", err
	}
	if orderID == "" {
		return payment.DonationRecord{}, "", myerrors.NewInvalidInputErrorf("capture without order id")
	}
	if referenceNo == "" {
		return payment.DonationRecord{}, "", myerrors.NewInvalidInputErrorf("capture without reference")
	}
	if amountInPence <= 0 {
		return payment.DonationRecord{}, "", myerrors.NewInvalidInputErrorf("donation amount must be positive")
	}

	credentials, found, err := s.vault.Get(c, myvault.PayPalCredentials)
	if err != nil {
		return payment.DonationRecord{}, "", myerrors.NewInternalError(fmt.Errorf("error fetching paypal credentials: %s", err))
	}
	if !found || credentials.ClientID == "" {
		return payment.DonationRecord{}, "", myerrors.NewUnavailableError(fmt.Errorf("paypal is not configured"))
	}

	err = s.payer.Configure(c, credentials.ClientID, credentials.ClientSecret)
	if err != nil {
		return payment.DonationRecord{}, "", err
	}

	s.logger.Log(c, referenceNo, mylog.SeverityInfo, "Capturing paypal order %s for reference %s", orderID, referenceNo)

	response, err := s.payer.CaptureOrder(c, orderID)
	if err != nil {
		return payment.DonationRecord{}, "", err
	}
	if response.Status != "COMPLETED" {
		return payment.DonationRecord{}, "", myerrors.NewInvalidInputErrorf("order %s capture ended in status %s", orderID, response.Status)
	}

	total := payment.TotalWithFee(payment.MethodPayPal, amountInPence, coveredFee == donationapi.Yes)

	return s.donations.CreateSingleDonation(c, owner, response.ID, total, currency, payment.MethodPayPal, referenceNo, coveredFee)
}
