// Package aquarius fetches asset metadata from the document store. Only the
// narrow resolution the purchase saga needs is implemented: DID → access
// service definition.
package aquarius

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const didPrefix = "did:op:"

// AccessService is the purchase-relevant slice of an asset's DDO.
type AccessService struct {
	ServiceDefinitionID string
	TemplateID          common.Address
	Price               *big.Int
	PurchaseEndpoint    string
	Creator             common.Address
	AssetID             [32]byte
}

// Resolver is what the orchestrator consumes; Client satisfies it.
type Resolver interface {
	ResolveAccessService(ctx context.Context, did, serviceDefinitionID string) (*AccessService, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

type ddoService struct {
	Type                string `json:"type"`
	ServiceDefinitionID string `json:"serviceDefinitionId"`
	TemplateID          string `json:"templateId"`
	Price               string `json:"price"`
	PurchaseEndpoint    string `json:"purchaseEndpoint"`
	Creator             string `json:"creator"`
}

type ddo struct {
	ID      string       `json:"id"`
	Service []ddoService `json:"service"`
}

// ResolveAccessService fetches the DDO and picks the Access service with the
// given definition id.
func (c *Client) ResolveAccessService(ctx context.Context, did, serviceDefinitionID string) (*AccessService, error) {
	url := fmt.Sprintf("%s/api/v1/aquarius/assets/ddo/%s", c.baseURL, did)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata store unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("metadata store returned %d: %s", resp.StatusCode, string(body))
	}

	var doc ddo
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode ddo for %s: %w", did, err)
	}

	assetID, err := AssetID(did)
	if err != nil {
		return nil, err
	}

	for _, svc := range doc.Service {
		if svc.Type != "Access" || svc.ServiceDefinitionID != serviceDefinitionID {
			continue
		}
		price, ok := new(big.Int).SetString(svc.Price, 10)
		if !ok {
			return nil, fmt.Errorf("asset %s: unparseable price %q", did, svc.Price)
		}
		return &AccessService{
			ServiceDefinitionID: svc.ServiceDefinitionID,
			TemplateID:          common.HexToAddress(svc.TemplateID),
			Price:               price,
			PurchaseEndpoint:    svc.PurchaseEndpoint,
			Creator:             common.HexToAddress(svc.Creator),
			AssetID:             assetID,
		}, nil
	}
	return nil, fmt.Errorf("asset %s has no access service with definition id %q", did, serviceDefinitionID)
}

// AssetID decodes a did:op identifier into its 32-byte document id.
func AssetID(did string) ([32]byte, error) {
	var id [32]byte
	hexPart := strings.TrimPrefix(strings.TrimPrefix(did, didPrefix), "0x")
	raw, err := hex.DecodeString(hexPart)
	if err != nil {
		return id, fmt.Errorf("invalid did %q: %w", did, err)
	}
	if len(raw) != 32 {
		return id, fmt.Errorf("invalid did %q: %d bytes, want 32", did, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}
