package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/aws/aws-sdk-go/service/kinesis/kinesisiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKinesis struct {
	kinesisiface.KinesisAPI
	inputs []*kinesis.PutRecordInput
	err    error
}

func (f *fakeKinesis) PutRecordWithContext(_ aws.Context, in *kinesis.PutRecordInput, _ ...request.Option) (*kinesis.PutRecordOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &kinesis.PutRecordOutput{SequenceNumber: aws.String("1")}, nil
}

func TestKinesisSink_Emit(t *testing.T) {
	fake := &fakeKinesis{}
	s := &KinesisSink{client: fake, streamName: "relay-events"}

	require.NoError(t, s.Emit(context.Background(), "alerts:purchase", []byte(`{"orderId":"o1"}`)))
	require.Len(t, fake.inputs, 1)
	assert.Equal(t, "alerts:purchase", aws.StringValue(fake.inputs[0].PartitionKey))
	assert.Equal(t, "relay-events", aws.StringValue(fake.inputs[0].StreamName))
	assert.JSONEq(t, `{"orderId":"o1"}`, string(fake.inputs[0].Data))
}

func TestKinesisSink_EmitError(t *testing.T) {
	s := &KinesisSink{client: &fakeKinesis{err: errors.New("throttled")}, streamName: "relay-events"}
	err := s.Emit(context.Background(), "stream:status", []byte(`{}`))
	assert.ErrorContains(t, err, "throttled")
}
