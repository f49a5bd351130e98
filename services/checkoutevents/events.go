package checkoutevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/myevents"
)

const (
	TopicName     = "checkout"
	startedName   = TopicName + ".started"
	submittedName = TopicName + ".submitted"
	expiredName   = TopicName + ".expired"
)

type CheckoutEventService interface {
	Subscribe(c context.Context) error
	OnCheckoutStarted(c context.Context, topic string, event CheckoutStarted) error
	OnCheckoutSubmitted(c context.Context, topic string, event CheckoutSubmitted) error
	OnCheckoutExpired(c context.Context, topic string, event CheckoutExpired) error
}

func DispatchEvent(c context.Context, reader io.Reader, service CheckoutEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case startedName:
		{
			event := CheckoutStarted{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnCheckoutStarted(c, envelope.Topic, event)
		}
	case submittedName:
		{
			event := CheckoutSubmitted{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnCheckoutSubmitted(c, envelope.Topic, event)
		}
	case expiredName:
		{
			event := CheckoutExpired{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnCheckoutExpired(c, envelope.Topic, event)
		}
	default:
		return myerrors.NewNotImplementedError(fmt.Errorf("event %s not supported", envelope.EventTypeName))
	}
}

type CheckoutStarted struct {
	AttemptUID string
	OwnerUID   string
}

func (e CheckoutStarted) GetEventTypeName() string {
	return startedName
}

func (e CheckoutStarted) GetAggregateName() string {
	return e.AttemptUID
}

type CheckoutSubmitted struct {
	AttemptUID    string
	OwnerUID      string
	ReferenceNo   string
	AmountInPence int64
}

func (e CheckoutSubmitted) GetEventTypeName() string {
	return submittedName
}

func (e CheckoutSubmitted) GetAggregateName() string {
	return e.AttemptUID
}

type CheckoutExpired struct {
	AttemptUID  string
	OwnerUID    string
	ReferenceNo string
}

func (e CheckoutExpired) GetEventTypeName() string {
	return expiredName
}

func (e CheckoutExpired) GetAggregateName() string {
	return e.AttemptUID
}
