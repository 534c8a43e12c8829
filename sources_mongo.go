package leaf

import (
	"context"

	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

// templateDoc is the document shape stored in MongoSourceSet's collection.
type templateDoc struct {
	Name string `bson:"name"`
	Body string `bson:"body"`
}

// MongoSourceSet resolves template names against a "templates" collection
// via mgo.v2, the second "database" Source the distilled spec's "from a
// filesystem, database, etc." phrasing calls out (§4.4), alongside
// SQLSourceSet.
type MongoSourceSet struct {
	session    *mgo.Session
	database   string
	collection string
}

// NewMongoSourceSet dials addr and returns a Source backed by
// database.collection.
func NewMongoSourceSet(addr, database, collection string) (*MongoSourceSet, error) {
	session, err := mgo.Dial(addr)
	if err != nil {
		return nil, sourceIOError(addr, err)
	}
	session.SetMode(mgo.Monotonic, true)
	return &MongoSourceSet{session: session, database: database, collection: collection}, nil
}

func (m *MongoSourceSet) coll() *mgo.Collection {
	return m.session.DB(m.database).C(m.collection)
}

func (m *MongoSourceSet) Find(ctx context.Context, key string) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	var doc templateDoc
	if err := m.coll().Find(bson.M{"name": key}).One(&doc); err != nil {
		if err == mgo.ErrNotFound {
			return "", nil, sourceNotFound(key)
		}
		return "", nil, sourceIOError(key, err)
	}
	return "mongo:" + doc.Name, []byte(doc.Body), nil
}

// Put upserts the stored body for name.
func (m *MongoSourceSet) Put(name, body string) error {
	_, err := m.coll().Upsert(bson.M{"name": name}, bson.M{"$set": bson.M{"name": name, "body": body}})
	if err != nil {
		return sourceIOError(name, err)
	}
	return nil
}

// Close releases the underlying mgo session.
func (m *MongoSourceSet) Close() { m.session.Close() }
