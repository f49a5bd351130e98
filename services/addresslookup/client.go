package addresslookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const httpClientTimeout = 5 * time.Second

// Candidate is one address suggestion returned by the lookup provider
type Candidate struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

type Lookuper interface {
	Lookup(ctx context.Context, postcode string) ([]Candidate, error)
}

type httpLookupClient struct {
	baseURL string
	apiKey  string
}

func NewLookupClient(baseURL string, apiKey string) *httpLookupClient {
	return &httpLookupClient{
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (c httpLookupClient) Lookup(ctx context.Context, postcode string) ([]Candidate, error) {
	lookupURL := fmt.Sprintf("%s/find/%s?api-key=%s", c.baseURL, url.PathEscape(postcode), url.QueryEscape(c.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating http request for postcode %s: %s", postcode, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	httpClient := &http.Client{
		Timeout: httpClientTimeout,
	}
	httpResp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error calling address lookup for postcode %s: %s", postcode, err)
	}
	defer httpResp.Body.Close()

	respPayload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading address lookup response for postcode %s: %s", postcode, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("address lookup for postcode %s returned status %d", postcode, httpResp.StatusCode)
	}

	resp := struct {
		Addresses []Candidate `json:"addresses"`
	}{}
	err = json.Unmarshal(respPayload, &resp)
	if err != nil {
		return nil, fmt.Errorf("error parsing address lookup response for postcode %s: %s", postcode, err)
	}

	return resp.Addresses, nil
}
