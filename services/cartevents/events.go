package cartevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/myevents"
)

const (
	TopicName       = "cart"
	lineAddedName   = TopicName + ".lineAdded"
	lineUpdatedName = TopicName + ".lineUpdated"
	lineRemovedName = TopicName + ".lineRemoved"
)

type CartEventService interface {
	Subscribe(c context.Context) error
	OnCartLineAdded(c context.Context, topic string, event CartLineAdded) error
	OnCartLineUpdated(c context.Context, topic string, event CartLineUpdated) error
	OnCartLineRemoved(c context.Context, topic string, event CartLineRemoved) error
}

func DispatchEvent(c context.Context, reader io.Reader, service CartEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case lineAddedName:
		{
			event := CartLineAdded{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnCartLineAdded(c, envelope.Topic, event)
		}
	case lineUpdatedName:
		{
			event := CartLineUpdated{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnCartLineUpdated(c, envelope.Topic, event)
		}
	case lineRemovedName:
		{
			event := CartLineRemoved{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnCartLineRemoved(c, envelope.Topic, event)
		}
	default:
		return myerrors.NewNotImplementedError(fmt.Errorf("event %s not supported", envelope.EventTypeName))
	}
}

type CartLineAdded struct {
	CartUID       string
	OwnerUID      string
	ProgramName   string
	AmountInPence int64
	Quantity      int
}

func (e CartLineAdded) GetEventTypeName() string {
	return lineAddedName
}

func (e CartLineAdded) GetAggregateName() string {
	return e.CartUID
}

type CartLineUpdated struct {
	CartUID  string
	OwnerUID string
	Quantity int
}

func (e CartLineUpdated) GetEventTypeName() string {
	return lineUpdatedName
}

func (e CartLineUpdated) GetAggregateName() string {
	return e.CartUID
}

type CartLineRemoved struct {
	CartUID  string
	OwnerUID string
}

func (e CartLineRemoved) GetEventTypeName() string {
	return lineRemovedName
}

func (e CartLineRemoved) GetAggregateName() string {
	return e.CartUID
}
