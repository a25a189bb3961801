package sink

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/aws/aws-sdk-go/service/kinesis/kinesisiface"
)

// KinesisSink writes every event to a Kinesis stream partitioned by bus channel.
type KinesisSink struct {
	client     kinesisiface.KinesisAPI
	streamName string
}

func NewKinesisSink(region, streamName string) (*KinesisSink, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return &KinesisSink{client: kinesis.New(sess), streamName: streamName}, nil
}

func (k *KinesisSink) Name() string { return "kinesis" }

func (k *KinesisSink) Emit(ctx context.Context, channel string, payload []byte) error {
	_, err := k.client.PutRecordWithContext(ctx, &kinesis.PutRecordInput{
		Data:         payload,
		PartitionKey: aws.String(channel),
		StreamName:   aws.String(k.streamName),
	})
	if err != nil {
		return fmt.Errorf("failed to put record to Kinesis: %w", err)
	}
	return nil
}
