package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/lox/weatheretl/internal/models"
)

// Numbers travel as DynamoDB N attributes built from their decimal text,
// never through float64.

func marshalItem(item models.Item) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		av, err := marshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

func marshalValue(v any) (types.AttributeValue, error) {
	switch t := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: t}, nil
	case json.Number:
		return &types.AttributeValueMemberN{Value: t.String()}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: t}, nil
	case int:
		return &types.AttributeValueMemberN{Value: strconv.Itoa(t)}, nil
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(t, 10)}, nil
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(t, 'f', -1, 64)}, nil
	case models.Item:
		return marshalValue(map[string]any(t))
	case map[string]any:
		m, err := marshalItem(models.Item(t))
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case []any:
		list := make([]types.AttributeValue, 0, len(t))
		for i, e := range t {
			av, err := marshalValue(e)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			list = append(list, av)
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func unmarshalItem(m map[string]types.AttributeValue) (models.Item, error) {
	out := make(models.Item, len(m))
	for k, av := range m {
		v, err := unmarshalValue(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func unmarshalValue(av types.AttributeValue) (any, error) {
	switch t := av.(type) {
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberS:
		return t.Value, nil
	case *types.AttributeValueMemberN:
		return json.Number(t.Value), nil
	case *types.AttributeValueMemberBOOL:
		return t.Value, nil
	case *types.AttributeValueMemberB:
		return t.Value, nil
	case *types.AttributeValueMemberM:
		m, err := unmarshalItem(t.Value)
		if err != nil {
			return nil, err
		}
		return map[string]any(m), nil
	case *types.AttributeValueMemberL:
		list := make([]any, 0, len(t.Value))
		for _, e := range t.Value {
			v, err := unmarshalValue(e)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case *types.AttributeValueMemberSS:
		list := make([]any, 0, len(t.Value))
		for _, s := range t.Value {
			list = append(list, s)
		}
		return list, nil
	case *types.AttributeValueMemberNS:
		list := make([]any, 0, len(t.Value))
		for _, n := range t.Value {
			list = append(list, json.Number(n))
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unsupported attribute type %T", av)
	}
}
