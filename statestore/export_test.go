package statestore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/guregu/dynamo/v2"
)

// CreateDdbTable creates a table with the DdbStore layout and returns a
// function that drops it.
func CreateDdbTable(ctx context.Context, client *dynamodb.Client, name string) (func() error, error) {
	db := dynamo.NewFromIface(client)
	if err := db.CreateTable(name, ddbRow{}).OnDemand(true).Run(ctx); err != nil {
		return nil, err
	}
	return func() error {
		return db.Table(name).DeleteTable().Run(context.Background())
	}, nil
}
