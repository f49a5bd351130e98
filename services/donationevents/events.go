package donationevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/myevents"
)

const (
	TopicName     = "donation"
	completedName = TopicName + ".completed"
)

type DonationEventService interface {
	Subscribe(c context.Context) error
	OnDonationCompleted(c context.Context, topic string, event DonationCompleted) error
}

func DispatchEvent(c context.Context, reader io.Reader, service DonationEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case completedName:
		{
			event := DonationCompleted{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnDonationCompleted(c, envelope.Topic, event)
		}
	default:
		return myerrors.NewNotImplementedError(fmt.Errorf("event %s not supported", envelope.EventTypeName))
	}
}

type DonationCompleted struct {
	DonationUID   string
	OwnerUID      string
	ReferenceNo   string
	Method        string
	AmountInPence int64
	CoveredFee    bool
}

func (e DonationCompleted) GetEventTypeName() string {
	return completedName
}

func (e DonationCompleted) GetAggregateName() string {
	return e.DonationUID
}
