package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTree maps the path tree onto a single collection: one document
// per written record, keyed by its slash-joined path. Subtree reads
// assemble every document under the prefix back into a nested map.
// Watch relies on change streams, so the deployment must be a replica
// set.
type MongoTree struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *slog.Logger
}

type treeDoc struct {
	Path  string `bson:"_id"`
	Value any    `bson:"v"`
}

func NewMongoTree(ctx context.Context, uri, database string, logger *slog.Logger) (*MongoTree, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return &MongoTree{
		client: client,
		coll:   client.Database(database).Collection("tree"),
		logger: logger,
	}, nil
}

func (t *MongoTree) Close(ctx context.Context) error {
	return t.client.Disconnect(ctx)
}

func (t *MongoTree) Get(ctx context.Context, path string, v any) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}
	key := strings.Join(segments, "/")

	cursor, err := t.coll.Find(ctx, bson.M{"_id": prefixFilter(key)})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	assembled := make(map[string]any)
	found := false
	var exact any
	for cursor.Next(ctx) {
		var doc treeDoc
		if err := cursor.Decode(&doc); err != nil {
			return err
		}
		found = true
		if doc.Path == key {
			exact = doc.Value
			continue
		}
		rel := strings.Split(strings.TrimPrefix(doc.Path, key+"/"), "/")
		insert(assembled, rel, doc.Value)
	}
	if err := cursor.Err(); err != nil {
		return err
	}
	if !found {
		return nil
	}

	var node any
	switch {
	case len(assembled) == 0:
		node = exact
	case exact == nil:
		node = assembled
	default:
		node = mergeNode(exact, assembled)
	}
	raw, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (t *MongoTree) Set(ctx context.Context, path string, v any) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}
	key := strings.Join(segments, "/")

	// Full replace: any records previously written below this path go
	// away with it.
	if _, err := t.coll.DeleteMany(ctx, bson.M{"_id": prefixFilter(key)}); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	normalized, err := normalize(v)
	if err != nil {
		return err
	}
	_, err = t.coll.ReplaceOne(ctx,
		bson.M{"_id": key},
		treeDoc{Path: key, Value: normalized},
		options.Replace().SetUpsert(true),
	)
	return err
}

func (t *MongoTree) Push(ctx context.Context, path string, v any) (string, error) {
	key := NewPushID(time.Now())
	if err := t.Set(ctx, path+"/"+key, v); err != nil {
		return "", err
	}
	return key, nil
}

func (t *MongoTree) Delete(ctx context.Context, path string) error {
	return t.Set(ctx, path, nil)
}

func (t *MongoTree) Watch(ctx context.Context, path string) (<-chan struct{}, error) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	key := strings.Join(segments, "/")

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"documentKey._id": prefixFilter(key)}}},
	}
	stream, err := t.coll.Watch(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			select {
			case out <- struct{}{}:
			default:
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			t.logger.Warn("mongo watch: change stream ended",
				slog.String("path", path), slog.String("errorMsg", err.Error()))
		}
	}()
	return out, nil
}

// prefixFilter matches the path itself and everything below it.
func prefixFilter(key string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(key) + "(/|$)"}
}

// mergeNode overlays child onto exact. Sub-path documents are always
// written after the enclosing record (Set deletes the subtree first),
// so on conflict the child value wins; maps merge recursively.
func mergeNode(exact, child any) any {
	exactMap, ok := exact.(map[string]any)
	if !ok {
		return child
	}
	childMap, ok := child.(map[string]any)
	if !ok {
		return child
	}
	for k, v := range childMap {
		if prev, ok := exactMap[k]; ok {
			exactMap[k] = mergeNode(prev, v)
		} else {
			exactMap[k] = v
		}
	}
	return exactMap
}

func insert(node map[string]any, segments []string, value any) {
	for _, s := range segments[:len(segments)-1] {
		child, ok := node[s].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[s] = child
		}
		node = child
	}
	node[segments[len(segments)-1]] = value
}
