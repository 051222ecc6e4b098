package store

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// MongoConfig holds the connection target for a persistent-document
// store.
type MongoConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
}

// Mongo is the persistent-document Store. Query, distinct and groupby
// translate directly to the database's native query and aggregation
// language.
type Mongo struct {
	base
	cfg    MongoConfig
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo returns a disconnected persistent-document store. The store
// name is the collection name.
func NewMongo(cfg MongoConfig, opts Options) *Mongo {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 27017
	}
	return &Mongo{base: newBase(cfg.Collection, opts), cfg: cfg}
}

// FromDBFile constructs a persistent-document store from a db file
// holding the connection parameters. Credential keys admin_user /
// admin_password and readonly_user / readonly_password are accepted as
// fallbacks for username / password.
func FromDBFile(path string, opts Options) (*Mongo, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("db file %s: %w", path, err)
	}
	cfg := MongoConfig{
		Host:       v.GetString("host"),
		Port:       v.GetInt("port"),
		Database:   v.GetString("database"),
		Collection: v.GetString("collection"),
		Username:   v.GetString("username"),
		Password:   v.GetString("password"),
	}
	if cfg.Username == "" {
		cfg.Username = v.GetString("admin_user")
		cfg.Password = v.GetString("admin_password")
	}
	if cfg.Username == "" {
		cfg.Username = v.GetString("readonly_user")
		cfg.Password = v.GetString("readonly_password")
	}
	return NewMongo(cfg, opts), nil
}

// Database returns the configured database name.
func (s *Mongo) Database() string { return s.cfg.Database }

func (s *Mongo) Connect(ctx context.Context) error {
	if s.connected {
		return nil
	}
	uri := fmt.Sprintf("mongodb://%s:%d", s.cfg.Host, s.cfg.Port)
	clientOpts := options.Client().ApplyURI(uri)
	if s.cfg.Username != "" {
		clientOpts.SetAuth(options.Credential{
			Username:   s.cfg.Username,
			Password:   s.cfg.Password,
			AuthSource: s.cfg.Database,
		})
	}
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return &ConnError{Store: s.name, Err: err}
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return &ConnError{Store: s.name, Err: err}
	}
	s.client = client
	s.coll = client.Database(s.cfg.Database).Collection(s.cfg.Collection)
	s.connected = true
	return nil
}

func (s *Mongo) Close(ctx context.Context) error {
	s.connected = false
	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	s.coll = nil
	return err
}

func (s *Mongo) Query(ctx context.Context, criteria Criteria, properties []string) (Cursor, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	if err := criteria.Validate(); err != nil {
		return nil, fmt.Errorf("store %s: %w", s.name, err)
	}
	findOpts := options.Find().SetProjection(projection(properties))
	cur, err := s.coll.Find(ctx, filterOf(criteria), findOpts)
	if err != nil {
		return nil, fmt.Errorf("store %s: query: %w", s.name, err)
	}
	return &mongoCursor{cur: cur}, nil
}

func (s *Mongo) QueryOne(ctx context.Context, criteria Criteria, properties []string) (Document, error) {
	cur, err := s.Query(ctx, criteria, properties)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if cur.Next(ctx) {
		return cur.Doc(), nil
	}
	return nil, cur.Err()
}

func (s *Mongo) Distinct(ctx context.Context, fields []string, criteria Criteria, allExist bool) ([]Document, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	if err := criteria.Validate(); err != nil {
		return nil, fmt.Errorf("store %s: %w", s.name, err)
	}

	// The native distinct command is cheapest but fails once the result
	// set exceeds the server's single-document ceiling. Try it for the
	// simple case, fall back to a $group aggregation transparently.
	if len(fields) == 1 && !allExist {
		vals, err := s.coll.Distinct(ctx, fields[0], filterOf(criteria))
		if err == nil {
			out := make([]Document, 0, len(vals))
			for _, v := range vals {
				if v == nil {
					continue
				}
				out = append(out, Document{fields[0]: normalizeValue(v)})
			}
			return out, nil
		}
		s.log.Debug("distinct command failed, falling back to aggregation",
			zap.Error(err))
	}

	match := bson.M(filterOf(criteria))
	if allExist {
		for _, f := range fields {
			match[f] = bson.M{"$exists": true}
		}
	}
	groupID := bson.M{}
	for i, f := range fields {
		groupID[groupSlot(i)] = "$" + f
	}
	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{"_id": groupID}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("store %s: distinct: %w", s.name, err)
	}
	defer cur.Close(ctx)

	var out []Document
	for cur.Next(ctx) {
		var row struct {
			ID bson.M `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("store %s: distinct: %w", s.name, err)
		}
		combo := Document{}
		for i, f := range fields {
			if v, ok := row.ID[groupSlot(i)]; ok && v != nil {
				combo[f] = normalizeValue(v)
			}
		}
		if len(combo) > 0 {
			out = append(out, combo)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("store %s: distinct: %w", s.name, err)
	}
	return out, nil
}

func (s *Mongo) GroupBy(ctx context.Context, fields []string, criteria Criteria) (Cursor, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	if err := criteria.Validate(); err != nil {
		return nil, fmt.Errorf("store %s: %w", s.name, err)
	}
	groupID := bson.M{}
	for i, f := range fields {
		groupID[groupSlot(i)] = "$" + f
	}
	pipeline := []bson.M{
		{"$match": bson.M(filterOf(criteria))},
		{"$group": bson.M{"_id": groupID, "docs": bson.M{"$push": "$$ROOT"}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("store %s: groupby: %w", s.name, err)
	}
	inner := &mongoCursor{cur: cur}
	return newTransformCursor(inner, func(row Document) (Document, error) {
		id, _ := row["_id"].(map[string]any)
		combo := Document{}
		for i, f := range fields {
			if v, ok := id[groupSlot(i)]; ok && v != nil {
				combo[f] = v
			}
		}
		return Document{"_id": combo, "docs": row["docs"]}, nil
	}), nil
}

func (s *Mongo) Update(ctx context.Context, docs []Document, opts UpdateOptions) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	key := s.updateKey(opts)
	now := nowFunc()
	replaceOpts := options.Replace().SetUpsert(true)
	for _, doc := range docs {
		stamped := s.stamp(doc, opts, now)
		filter, err := keyFilter(stamped, key)
		if err != nil {
			return fmt.Errorf("store %s: update: %w", s.name, err)
		}
		if _, err := s.coll.ReplaceOne(ctx, filterOf(filter), stamped, replaceOpts); err != nil {
			return fmt.Errorf("store %s: update: %w", s.name, err)
		}
	}
	return nil
}

func (s *Mongo) EnsureIndex(ctx context.Context, fields []string) error {
	if err := s.requireConnected(); err != nil {
		return err
	}
	keys := bson.D{}
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	if _, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys}); err != nil {
		return fmt.Errorf("store %s: ensure index: %w", s.name, err)
	}
	return nil
}

// ConfirmIndex reports whether any of fields is the leading key of an
// existing index. A store used as a read-only source may lack the
// privilege even to list indexes; that degrades to absent, not an error.
func (s *Mongo) ConfirmIndex(ctx context.Context, fields []string) (bool, error) {
	if err := s.requireConnected(); err != nil {
		return false, err
	}
	cur, err := s.coll.Indexes().List(ctx)
	if err != nil {
		s.log.Debug("index listing unavailable", zap.Error(err))
		return false, nil
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var spec struct {
			Key bson.D `bson:"key"`
		}
		if err := cur.Decode(&spec); err != nil || len(spec.Key) == 0 {
			continue
		}
		for _, f := range fields {
			if spec.Key[0].Key == f {
				return true, nil
			}
		}
	}
	return false, nil
}

// filterOf renders criteria as a driver filter, excluding the synthetic
// object id from results elsewhere.
func filterOf(criteria Criteria) bson.M {
	if criteria == nil {
		return bson.M{}
	}
	return bson.M(criteria)
}

func projection(properties []string) bson.M {
	proj := bson.M{"_id": 0}
	for _, p := range properties {
		proj[p] = 1
	}
	return proj
}

func groupSlot(i int) string { return fmt.Sprintf("f%d", i) }

// mongoCursor adapts *mongo.Cursor, normalizing driver-native document
// and array types back to plain Go trees so the dot-path utilities work
// on the results.
type mongoCursor struct {
	cur *mongo.Cursor
	doc Document
	err error
}

func (c *mongoCursor) Next(ctx context.Context) bool {
	if c.err != nil || !c.cur.Next(ctx) {
		return false
	}
	var raw bson.M
	if err := c.cur.Decode(&raw); err != nil {
		c.err = err
		return false
	}
	c.doc = normalizeDoc(raw)
	return true
}

func (c *mongoCursor) Doc() Document { return c.doc }

func (c *mongoCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.cur.Err()
}

func (c *mongoCursor) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}

func normalizeDoc(m bson.M) Document {
	out := make(Document, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		return normalizeDoc(t)
	case bson.D:
		out := make(Document, len(t))
		for _, e := range t {
			out[e.Key] = normalizeValue(e.Value)
		}
		return out
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	case primitive.DateTime:
		return t.Time()
	case primitive.ObjectID:
		return t.Hex()
	case primitive.Binary:
		return t.Data
	case int32:
		return int(t)
	case int64:
		return int(t)
	default:
		return v
	}
}
