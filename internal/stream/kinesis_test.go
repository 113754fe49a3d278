package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
)

type fakeKinesis struct {
	inputs []*kinesis.PutRecordInput
	err    error
}

func (f *fakeKinesis) PutRecord(ctx context.Context, in *kinesis.PutRecordInput, _ ...func(*kinesis.Options)) (*kinesis.PutRecordOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &kinesis.PutRecordOutput{
		ShardId:        aws.String("shardId-000000000000"),
		SequenceNumber: aws.String("49590338271490256608559692538361571095921575989136588898"),
	}, nil
}

func TestKinesisPublish(t *testing.T) {
	fake := &fakeKinesis{}
	k := NewKinesis(fake, "weather-stream", nil)

	if err := k.Publish(context.Background(), "partitionKey", []byte(`{"city":"Berlin"}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(fake.inputs) != 1 {
		t.Fatalf("PutRecord calls = %d, want 1", len(fake.inputs))
	}
	in := fake.inputs[0]
	if aws.ToString(in.StreamName) != "weather-stream" {
		t.Errorf("StreamName = %q", aws.ToString(in.StreamName))
	}
	if aws.ToString(in.PartitionKey) != "partitionKey" {
		t.Errorf("PartitionKey = %q", aws.ToString(in.PartitionKey))
	}
	if string(in.Data) != `{"city":"Berlin"}` {
		t.Errorf("Data = %s", in.Data)
	}
}

func TestKinesisPublish_Error(t *testing.T) {
	fake := &fakeKinesis{err: errors.New("ResourceNotFoundException")}
	k := NewKinesis(fake, "missing", nil)

	err := k.Publish(context.Background(), "partitionKey", []byte(`{}`))
	if !errors.Is(err, fake.err) {
		t.Errorf("Publish error = %v, want wrapped %v", err, fake.err)
	}
}
