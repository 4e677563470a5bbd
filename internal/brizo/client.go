// Package brizo is the client for the publisher's off-chain gateway: the
// consumer posts a signed initialize request there to start agreement
// creation on the publisher's side.
package brizo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oceanprotocol/squid-go/internal/models"
)

// InitializeResult classifies the gateway's answer. Ambiguous means HTTP 401:
// the gateway may still have created the agreement, so the caller confirms
// on-chain before declaring failure.
type InitializeResult int

const (
	InitializeAccepted InitializeResult = iota
	InitializeAmbiguous
	InitializeRejected
)

// InitializeRequest is the signed purchase payload. The agreement id travels
// 0x-prefixed; the signature is a personal-message signature over the
// agreement hash by consumerAddress.
type InitializeRequest struct {
	DID                 string `json:"did"`
	ServiceAgreementID  string `json:"serviceAgreementId"`
	ServiceDefinitionID string `json:"serviceDefinitionId"`
	Signature           string `json:"signature"`
	ConsumerAddress     string `json:"consumerAddress"`
}

type Client struct {
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(log *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// InitializeAccess posts the signed request to the service's purchase
// endpoint. 201 means accepted; 401 is ambiguous and returned for the caller
// to resolve; anything else is a rejection carrying the response body.
func (c *Client) InitializeAccess(ctx context.Context, purchaseEndpoint string, req InitializeRequest) (InitializeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return InitializeRejected, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, purchaseEndpoint, strings.NewReader(string(body)))
	if err != nil {
		return InitializeRejected, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return InitializeRejected, fmt.Errorf("gateway unavailable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated:
		return InitializeAccepted, nil
	case resp.StatusCode == http.StatusUnauthorized:
		c.log.Warn("gateway returned 401, confirming agreement on-chain",
			zap.String("agreement_id", req.ServiceAgreementID),
		)
		return InitializeAmbiguous, nil
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return InitializeRejected, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(respBody))
	}
}

// NewInitializeRequest assembles the payload for one agreement.
func NewInitializeRequest(did string, agreementID models.AgreementID, serviceDefinitionID, signature, consumerAddress string) InitializeRequest {
	return InitializeRequest{
		DID:                 did,
		ServiceAgreementID:  agreementID.Hex(),
		ServiceDefinitionID: serviceDefinitionID,
		Signature:           signature,
		ConsumerAddress:     consumerAddress,
	}
}
