package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
)

type KinesisAPI interface {
	PutRecord(ctx context.Context, params *kinesis.PutRecordInput, optFns ...func(*kinesis.Options)) (*kinesis.PutRecordOutput, error)
}

type Kinesis struct {
	client     KinesisAPI
	streamName string
	log        *slog.Logger
}

func NewKinesis(client KinesisAPI, streamName string, log *slog.Logger) *Kinesis {
	if log == nil {
		log = slog.Default()
	}
	return &Kinesis{client: client, streamName: streamName, log: log}
}

func (k *Kinesis) Publish(ctx context.Context, partitionKey string, data []byte) error {
	out, err := k.client.PutRecord(ctx, &kinesis.PutRecordInput{
		StreamName:   aws.String(k.streamName),
		PartitionKey: aws.String(partitionKey),
		Data:         data,
	})
	if err != nil {
		return fmt.Errorf("put record to %s: %w", k.streamName, err)
	}
	k.log.Info("kinesis: record published",
		"stream", k.streamName,
		"shard", aws.ToString(out.ShardId),
		"sequence", aws.ToString(out.SequenceNumber),
	)
	return nil
}
