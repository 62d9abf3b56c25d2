package waf

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/wafv2"
	"github.com/aws/aws-sdk-go-v2/service/wafv2/types"
	"github.com/aws/smithy-go"

	"github.com/bcnelson/waf-ipset-manager/internal/domain"
)

const listPageLimit int32 = 100

// API is the part of *wafv2.Client used by AWSClient.
type API interface {
	ListIPSets(ctx context.Context, params *wafv2.ListIPSetsInput, optFns ...func(*wafv2.Options)) (*wafv2.ListIPSetsOutput, error)
	GetIPSet(ctx context.Context, params *wafv2.GetIPSetInput, optFns ...func(*wafv2.Options)) (*wafv2.GetIPSetOutput, error)
	UpdateIPSet(ctx context.Context, params *wafv2.UpdateIPSetInput, optFns ...func(*wafv2.Options)) (*wafv2.UpdateIPSetOutput, error)
}

// AWSClient talks to AWS WAFv2.
type AWSClient struct {
	api API
}

// Ensure AWSClient implements Client.
var _ Client = (*AWSClient)(nil)

// New creates a WAFv2 client from the shared AWS configuration. An empty
// profile or region falls back to the SDK's default resolution.
func New(ctx context.Context, profile, region string) (*AWSClient, error) {
	var opts []func(*config.LoadOptions) error
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return NewFromAPI(wafv2.NewFromConfig(cfg)), nil
}

// NewFromAPI wraps an existing WAFv2 API implementation.
func NewFromAPI(api API) *AWSClient {
	return &AWSClient{api: api}
}

// ListIPSets returns one page of IP set summaries.
func (c *AWSClient) ListIPSets(ctx context.Context, scope domain.Scope, marker string) (*domain.IPSetPage, error) {
	in := &wafv2.ListIPSetsInput{
		Scope: types.Scope(scope),
		Limit: aws.Int32(listPageLimit),
	}
	if marker != "" {
		in.NextMarker = aws.String(marker)
	}

	out, err := c.api.ListIPSets(ctx, in)
	if err != nil {
		return nil, convertError(err)
	}

	page := &domain.IPSetPage{
		IPSets:     make([]domain.IPSetSummary, 0, len(out.IPSets)),
		NextMarker: aws.ToString(out.NextMarker),
	}
	for _, s := range out.IPSets {
		page.IPSets = append(page.IPSets, domain.IPSetSummary{
			Name:        aws.ToString(s.Name),
			ID:          aws.ToString(s.Id),
			ARN:         aws.ToString(s.ARN),
			Description: aws.ToString(s.Description),
			LockToken:   aws.ToString(s.LockToken),
		})
	}
	return page, nil
}

// GetIPSet fetches the full detail of one IP set with its lock token.
func (c *AWSClient) GetIPSet(ctx context.Context, name string, scope domain.Scope, id string) (*domain.IPSetSnapshot, error) {
	out, err := c.api.GetIPSet(ctx, &wafv2.GetIPSetInput{
		Name:  aws.String(name),
		Scope: types.Scope(scope),
		Id:    aws.String(id),
	})
	if err != nil {
		return nil, convertError(err)
	}
	if out.IPSet == nil {
		return nil, fmt.Errorf("empty GetIPSet response for %s", name)
	}

	return &domain.IPSetSnapshot{
		Name:             aws.ToString(out.IPSet.Name),
		ID:               aws.ToString(out.IPSet.Id),
		ARN:              aws.ToString(out.IPSet.ARN),
		Description:      aws.ToString(out.IPSet.Description),
		Addresses:        append([]string{}, out.IPSet.Addresses...),
		IPAddressVersion: domain.IPAddressVersion(out.IPSet.IPAddressVersion),
		LockToken:        aws.ToString(out.LockToken),
		Scope:            scope,
	}, nil
}

// UpdateIPSet replaces the address list of an IP set.
func (c *AWSClient) UpdateIPSet(ctx context.Context, req domain.SubmissionRequest) error {
	in := &wafv2.UpdateIPSetInput{
		Name:      aws.String(req.Name),
		Scope:     types.Scope(req.Scope),
		Id:        aws.String(req.ID),
		Addresses: req.Addresses,
		LockToken: aws.String(req.LockToken),
	}
	if in.Addresses == nil {
		in.Addresses = []string{}
	}
	// WAF rejects an empty description, and omitting it keeps none.
	if req.Description != "" {
		in.Description = aws.String(req.Description)
	}

	if _, err := c.api.UpdateIPSet(ctx, in); err != nil {
		return convertError(err)
	}
	return nil
}

// convertError turns a service error into a *RejectionError; transport and
// client side errors are returned unchanged.
func convertError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &RejectionError{
			Code:    apiErr.ErrorCode(),
			Message: apiErr.ErrorMessage(),
			Err:     err,
		}
	}
	return err
}
