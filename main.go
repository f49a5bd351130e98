package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/samadsayyed/donation-portal-sub000/lib/mykvstore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mypublisher"
	"github.com/samadsayyed/donation-portal-sub000/lib/mypubsub"
	"github.com/samadsayyed/donation-portal-sub000/lib/myqueue"
	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mytime"
	"github.com/samadsayyed/donation-portal-sub000/lib/myuuid"
	"github.com/samadsayyed/donation-portal-sub000/lib/myvault"
	"github.com/samadsayyed/donation-portal-sub000/services/addresslookup"
	"github.com/samadsayyed/donation-portal-sub000/services/cart"
	"github.com/samadsayyed/donation-portal-sub000/services/cartevents"
	"github.com/samadsayyed/donation-portal-sub000/services/catalog"
	"github.com/samadsayyed/donation-portal-sub000/services/checkout"
	"github.com/samadsayyed/donation-portal-sub000/services/checkoutevents"
	"github.com/samadsayyed/donation-portal-sub000/services/donationevents"
	"github.com/samadsayyed/donation-portal-sub000/services/donor"
	"github.com/samadsayyed/donation-portal-sub000/services/payment"
	"github.com/samadsayyed/donation-portal-sub000/services/paymentpaypal"
	"github.com/samadsayyed/donation-portal-sub000/services/paymentstripe"
	"github.com/samadsayyed/donation-portal-sub000/services/selection"
	"github.com/samadsayyed/donation-portal-sub000/services/session"
)

func main() {
	c := context.Background()

	router := mux.NewRouter()

	nower := mytime.RealNower{}
	uuider := myuuid.RealUUIDer{}

	queue, queueCleanup, err := myqueue.New(c)
	if err != nil {
		log.Fatalf("Error creating task queue: %s", err)
	}
	defer queueCleanup()

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		log.Fatalf("Error creating pubsub: %s", err)
	}
	defer pubsubCleanup()

	publisher, publisherCleanup, err := mypublisher.New(c, pubsub, queue, nower)
	if err != nil {
		log.Fatalf("Error creating publisher: %s", err)
	}
	defer publisherCleanup()
	publisher.RegisterEndpoints(c, router)

	for _, topic := range []string{cartevents.TopicName, checkoutevents.TopicName, donationevents.TopicName} {
		err = publisher.CreateTopic(c, topic)
		if err != nil {
			log.Fatalf("Error creating topic %s: %s", topic, err)
		}
	}

	vault := createVault(c)

	kvStore, kvStoreCleanup, err := mykvstore.New(c, nower)
	if err != nil {
		log.Fatalf("Error creating kv-store: %s", err)
	}
	defer kvStoreCleanup()

	sessionStore, _, err := mystore.New[session.Session](c)
	if err != nil {
		log.Fatalf("Error creating session store: %s", err)
	}
	sessionService := session.NewWebService(sessionStore, nower)
	sessionService.RegisterEndpoints(c, router)

	categoryStore, _, err := mystore.New[catalog.Category](c)
	if err != nil {
		log.Fatalf("Error creating category store: %s", err)
	}
	programStore, _, err := mystore.New[catalog.Program](c)
	if err != nil {
		log.Fatalf("Error creating program store: %s", err)
	}
	countryStore, _, err := mystore.New[catalog.Country](c)
	if err != nil {
		log.Fatalf("Error creating country store: %s", err)
	}
	catalogService := catalog.NewWebService(categoryStore, programStore, countryStore)
	err = catalogService.Seed(c)
	if err != nil {
		log.Fatalf("Error seeding catalog: %s", err)
	}
	catalogService.RegisterEndpoints(c, router)

	cartStore, _, err := mystore.New[cart.CartLine](c)
	if err != nil {
		log.Fatalf("Error creating cart store: %s", err)
	}
	cartService := cart.NewWebService(cartStore, publisher, nower, uuider)
	cartService.RegisterEndpoints(c, router)

	stateStore, _, err := mystore.New[selection.State](c)
	if err != nil {
		log.Fatalf("Error creating selection store: %s", err)
	}
	selectionService := selection.NewWebService(stateStore, catalogService, cartService, nower)
	selectionService.RegisterEndpoints(c, router)

	referenceStore, _, err := mystore.New[payment.PaymentReference](c)
	if err != nil {
		log.Fatalf("Error creating reference store: %s", err)
	}
	transactionStore, _, err := mystore.New[payment.TransactionRecord](c)
	if err != nil {
		log.Fatalf("Error creating transaction store: %s", err)
	}
	donationStore, _, err := mystore.New[payment.DonationRecord](c)
	if err != nil {
		log.Fatalf("Error creating donation store: %s", err)
	}
	paymentService := payment.NewWebService(referenceStore, transactionStore, donationStore, kvStore, queue, publisher, nower, uuider)
	paymentService.RegisterEndpoints(c, router)

	donorStore, _, err := mystore.New[donor.Donor](c)
	if err != nil {
		log.Fatalf("Error creating donor store: %s", err)
	}
	addressStore, _, err := mystore.New[donor.Address](c)
	if err != nil {
		log.Fatalf("Error creating address store: %s", err)
	}
	donorService := donor.NewWebService(donorStore, addressStore, paymentService, nower, uuider)
	donorService.RegisterEndpoints(c, router)

	attemptStore, _, err := mystore.New[checkout.Attempt](c)
	if err != nil {
		log.Fatalf("Error creating attempt store: %s", err)
	}
	checkoutService := checkout.NewWebService(attemptStore, kvStore, cartService, paymentService, donorService, queue, publisher, nower, uuider)
	checkoutService.RegisterEndpoints(c, router)

	stripeService := paymentstripe.NewWebService(paymentstripe.NewPayer(), vault)
	stripeService.RegisterEndpoints(c, router)

	paypalService := paymentpaypal.NewWebService(paymentpaypal.NewPayer(os.Getenv("PAYPAL_API_BASE")), vault, paymentService)
	paypalService.RegisterEndpoints(c, router)

	addressService := addresslookup.NewWebService(createAddressLookupClient())
	addressService.RegisterEndpoints(c, router)

	startWebServerBlocking(router)
}

// createVault seeds the gateway credentials from the environment
func createVault(c context.Context) myvault.Vault {
	vault, _, err := myvault.New(c)
	if err != nil {
		log.Fatalf("Error creating vault: %s", err)
	}

	if apiKey := os.Getenv("STRIPE_API_KEY"); apiKey != "" {
		err = vault.Put(c, myvault.StripeCredentials, myvault.Credentials{APIKey: apiKey})
		if err != nil {
			log.Fatalf("Error storing stripe credentials: %s", err)
		}
	}
	if clientID := os.Getenv("PAYPAL_CLIENT_ID"); clientID != "" {
		err = vault.Put(c, myvault.PayPalCredentials, myvault.Credentials{
			ClientID:     clientID,
			ClientSecret: os.Getenv("PAYPAL_SECRET"),
		})
		if err != nil {
			log.Fatalf("Error storing paypal credentials: %s", err)
		}
	}

	return vault
}

func createAddressLookupClient() addresslookup.Lookuper {
	baseURL := os.Getenv("ADDRESS_LOOKUP_URL")
	if baseURL == "" {
		return nil
	}
	return addresslookup.NewLookupClient(baseURL, os.Getenv("ADDRESS_LOOKUP_API_KEY"))
}

func startWebServerBlocking(router *mux.Router) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting webserver on port %s (try http://localhost:%s)", port, port)
	err := http.ListenAndServe(fmt.Sprintf(":%s", port), router)
	if err != nil {
		log.Fatalf("Error starting webserver on port %s: %s", port, err)
	}
}
