// Package repository loads the read-only product catalog from a
// DynamoDB table at startup. Carts and conversation state are
// deliberately not persisted here; only the catalog crosses the
// process boundary.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"storefront-agent/internal/domain"
)

// dynamodbAPI is the minimal DynamoDB interface required by CatalogSource.
// Defined here for testability.
type dynamodbAPI interface {
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// CatalogSource reads product records from a DynamoDB table.
type CatalogSource struct {
	api       dynamodbAPI
	tableName string
}

// NewCatalogSource creates a CatalogSource for the given table.
func NewCatalogSource(api dynamodbAPI, tableName string) (*CatalogSource, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &CatalogSource{api: api, tableName: tableName}, nil
}

// LoadProducts scans the full table and returns the product records in
// scan order. The scan follows pagination until the table is
// exhausted; the catalog is expected to be small.
func (s *CatalogSource) LoadProducts(ctx context.Context) ([]domain.Product, error) {
	var (
		products []domain.Product
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := s.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: LoadProducts scan: %w", err)
		}
		for _, item := range out.Items {
			p, err := itemToProduct(item)
			if err != nil {
				return nil, fmt.Errorf("repository: LoadProducts unmarshal: %w", err)
			}
			products = append(products, p)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return products, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// itemToProduct converts a DynamoDB attribute map to a Product.
func itemToProduct(item map[string]types.AttributeValue) (domain.Product, error) {
	name, err := strAttr(item, "name")
	if err != nil {
		return domain.Product{}, err
	}
	category, err := strAttr(item, "category")
	if err != nil {
		return domain.Product{}, err
	}
	description, _ := strAttr(item, "description") // allow empty
	price, _ := strAttr(item, "price")             // allow empty, renders as N/A
	keywords, err := strSetAttr(item, "keywords")
	if err != nil {
		return domain.Product{}, err
	}

	return domain.Product{
		Name:        name,
		Category:    category,
		Price:       price,
		Description: description,
		Keywords:    keywords,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

// strSetAttr reads a string-set or string-list attribute. A missing
// attribute is an empty keyword set, which is valid for a product.
func strSetAttr(item map[string]types.AttributeValue, key string) ([]string, error) {
	v, ok := item[key]
	if !ok {
		return nil, nil
	}
	switch attr := v.(type) {
	case *types.AttributeValueMemberSS:
		return attr.Value, nil
	case *types.AttributeValueMemberL:
		out := make([]string, 0, len(attr.Value))
		for _, member := range attr.Value {
			s, ok := member.(*types.AttributeValueMemberS)
			if !ok {
				return nil, fmt.Errorf("repository: attribute %q has a non-string member", key)
			}
			out = append(out, s.Value)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("repository: attribute %q is not a string set", key)
	}
}
