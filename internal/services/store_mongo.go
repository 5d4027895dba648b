package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"school_transport_echo/internal/models"
)

// MongoStore keeps the ledger in the school's MongoDB collections. Those
// collections hold references as ObjectIDs and money as plain numbers, so ids
// are matched in both shapes and amounts decode from any numeric type. New
// documents get ObjectIDs; amounts are written as Decimal128.
type MongoStore struct {
	db          *mongo.Database
	payments    *mongo.Collection
	fees        *mongo.Collection
	students    *mongo.Collection
	routes      *mongo.Collection
	attendances *mongo.Collection
	now         func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:          db,
		payments:    db.Collection("transportpayments"),
		fees:        db.Collection("transportfees"),
		students:    db.Collection("students"),
		routes:      db.Collection("routes"),
		attendances: db.Collection("transportattendances"),
		now:         time.Now,
	}
}

func (s *MongoStore) Name() string { return "mongo" }

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// EnsureIndexes creates the unique indexes the upserts rely on
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.fees.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "routeId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return errors.Wrap(err, "fee index")
	}
	if _, err := s.payments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "routeId", Value: 1}, {Key: "term", Value: 1}, {Key: "year", Value: 1}},
	}); err != nil {
		return errors.Wrap(err, "payment index")
	}
	_, err := s.attendances.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "studentId", Value: 1}, {Key: "routeId", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errors.Wrap(err, "attendance index")
}

// WithinSnapshot calls fn directly. Multi-document snapshots need a replica
// set, so the fee read and the prior sum are two independent reads here.
func (s *MongoStore) WithinSnapshot(_ context.Context, fn func(LedgerStore) error) error {
	return fn(s)
}

// mongoNumber is a money field. It is written as Decimal128 and read from
// Decimal128, double, int32 or int64.
type mongoNumber decimal.Decimal

func (n mongoNumber) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(toDecimal128(decimal.Decimal(n)))
}

func (n *mongoNumber) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bsontype.Null, bsontype.Undefined:
		*n = mongoNumber(decimal.Zero)
		return nil
	case bsontype.Decimal128, bsontype.Double, bsontype.Int32, bsontype.Int64:
		var v interface{}
		if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&v); err != nil {
			return errors.Wrap(err, "decode number")
		}
		*n = mongoNumber(numberToDecimal(v))
		return nil
	default:
		return errors.Errorf("cannot decode %s into an amount", t)
	}
}

func (n mongoNumber) Decimal() decimal.Decimal { return decimal.Decimal(n) }

type paymentDoc struct {
	ID        interface{} `bson:"_id"`
	StudentID interface{} `bson:"studentId"`
	RouteID   interface{} `bson:"routeId"`
	Term      string      `bson:"term"`
	Year      int         `bson:"year"`
	Amount    mongoNumber `bson:"amount"`
	Method    string      `bson:"method"`
	Balance   mongoNumber `bson:"balance"`
	Status    string      `bson:"status"`
	CreatedAt time.Time   `bson:"createdAt"`
	UpdatedAt time.Time   `bson:"updatedAt"`
}

func (d paymentDoc) model() models.TransportPayment {
	return models.TransportPayment{
		ID:        idString(d.ID),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		StudentID: idString(d.StudentID),
		RouteID:   idString(d.RouteID),
		Term:      models.Term(d.Term),
		Year:      d.Year,
		Amount:    d.Amount.Decimal(),
		Method:    models.PaymentMethod(d.Method),
		Balance:   d.Balance.Decimal(),
		Status:    models.PaymentStatus(d.Status),
	}
}

type feeDoc struct {
	ID        interface{} `bson:"_id"`
	RouteID   interface{} `bson:"routeId"`
	Amount    mongoNumber `bson:"amount"`
	CreatedAt time.Time   `bson:"createdAt"`
	UpdatedAt time.Time   `bson:"updatedAt"`
}

func (d feeDoc) model() models.TransportFee {
	return models.TransportFee{
		ID:        idString(d.ID),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		RouteID:   idString(d.RouteID),
		Amount:    d.Amount.Decimal(),
	}
}

type studentDoc struct {
	ID        interface{} `bson:"_id"`
	Name      string      `bson:"name"`
	ClassName string      `bson:"className"`
}

type routeDoc struct {
	ID    interface{} `bson:"_id"`
	Name  string      `bson:"name"`
	BusID interface{} `bson:"busId,omitempty"`
}

type attendanceDoc struct {
	ID        interface{} `bson:"_id"`
	StudentID interface{} `bson:"studentId"`
	RouteID   interface{} `bson:"routeId"`
	BusID     interface{} `bson:"busId,omitempty"`
	Date      string      `bson:"date"`
	Present   bool        `bson:"present"`
	CreatedAt time.Time   `bson:"createdAt"`
	UpdatedAt time.Time   `bson:"updatedAt"`
}

func (d attendanceDoc) model() models.TransportAttendance {
	a := models.TransportAttendance{
		ID:        idString(d.ID),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		StudentID: idString(d.StudentID),
		RouteID:   idString(d.RouteID),
		Date:      d.Date,
		Present:   d.Present,
	}
	if bus := idString(d.BusID); bus != "" {
		a.BusID = &bus
	}
	return a
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// numberToDecimal converts whatever numeric BSON type an aggregation returns
func numberToDecimal(v interface{}) decimal.Decimal {
	switch n := v.(type) {
	case primitive.Decimal128:
		return fromDecimal128(n)
	case float64:
		return decimal.NewFromFloat(n)
	case int32:
		return decimal.NewFromInt32(n)
	case int64:
		return decimal.NewFromInt(n)
	default:
		return decimal.Zero
	}
}

// idString renders a directory _id, which is an ObjectID in the school database
func idString(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return ""
	}
}

// refValue is the stored form of an id: an ObjectID when id is one in hex
func refValue(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// refMatch matches a reference stored either as an ObjectID or as its string
func refMatch(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"$in": bson.A{oid, id}}
	}
	return id
}

// idFilter matches a document by hex ObjectID or plain string id
func idFilter(id string) bson.M {
	return bson.M{"_id": refMatch(id)}
}

func (s *MongoStore) CreatePayment(ctx context.Context, p *models.TransportPayment) error {
	if p.ID == "" {
		p.ID = primitive.NewObjectID().Hex()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	p.UpdatedAt = p.CreatedAt
	_, err := s.payments.InsertOne(ctx, paymentDoc{
		ID:        refValue(p.ID),
		StudentID: refValue(p.StudentID),
		RouteID:   refValue(p.RouteID),
		Term:      string(p.Term),
		Year:      p.Year,
		Amount:    mongoNumber(p.Amount),
		Method:    string(p.Method),
		Balance:   mongoNumber(p.Balance),
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	})
	return errors.Wrap(err, "insert payment")
}

func paymentFilterDoc(filter models.PaymentFilter) bson.M {
	q := bson.M{}
	if filter.Term != "" {
		q["term"] = string(filter.Term)
	}
	if filter.Year != 0 {
		q["year"] = filter.Year
	}
	if filter.StudentID != "" {
		q["studentId"] = refMatch(filter.StudentID)
	}
	if filter.RouteID != "" {
		q["routeId"] = refMatch(filter.RouteID)
	}
	return q
}

func (s *MongoStore) FindPayments(ctx context.Context, filter models.PaymentFilter) ([]models.TransportPayment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.payments.Find(ctx, paymentFilterDoc(filter), opts)
	if err != nil {
		return nil, errors.Wrap(err, "find payments")
	}
	defer cursor.Close(ctx)

	var docs []paymentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode payments")
	}
	payments := make([]models.TransportPayment, 0, len(docs))
	for _, d := range docs {
		payments = append(payments, d.model())
	}
	return payments, nil
}

func (s *MongoStore) SumPayments(ctx context.Context, key models.PaymentKey) (decimal.Decimal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: paymentFilterDoc(models.PaymentFilter{
			Term: key.Term, Year: key.Year, StudentID: key.StudentID, RouteID: key.RouteID,
		})}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}}}},
	}
	cursor, err := s.payments.Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "sum payments")
	}
	defer cursor.Close(ctx)

	var rows []bson.M
	if err := cursor.All(ctx, &rows); err != nil {
		return decimal.Zero, errors.Wrap(err, "decode payment sum")
	}
	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	return numberToDecimal(rows[0]["total"]), nil
}

func (s *MongoStore) DeletePayment(ctx context.Context, id string) error {
	res, err := s.payments.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return errors.Wrap(err, "delete payment")
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoStore) UpdatePaymentSnapshot(ctx context.Context, id string, balance decimal.Decimal, status models.PaymentStatus) error {
	res, err := s.payments.UpdateOne(ctx, idFilter(id), bson.M{"$set": bson.M{
		"balance":   toDecimal128(balance),
		"status":    string(status),
		"updatedAt": s.now(),
	}})
	if err != nil {
		return errors.Wrap(err, "update payment snapshot")
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoStore) UpsertFee(ctx context.Context, routeID string, amount decimal.Decimal) (*models.TransportFee, error) {
	now := s.now()
	update := bson.M{
		"$set":         bson.M{"amount": toDecimal128(amount), "updatedAt": now},
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID(), "routeId": refValue(routeID), "createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc feeDoc
	if err := s.fees.FindOneAndUpdate(ctx, bson.M{"routeId": refMatch(routeID)}, update, opts).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "upsert fee")
	}
	fee := doc.model()
	return &fee, nil
}

func (s *MongoStore) FindFee(ctx context.Context, routeID string) (*models.TransportFee, error) {
	var doc feeDoc
	err := s.fees.FindOne(ctx, bson.M{"routeId": refMatch(routeID)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find fee")
	}
	fee := doc.model()
	return &fee, nil
}

func (s *MongoStore) ListFees(ctx context.Context) ([]models.TransportFee, error) {
	cursor, err := s.fees.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list fees")
	}
	defer cursor.Close(ctx)

	var docs []feeDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode fees")
	}
	fees := make([]models.TransportFee, 0, len(docs))
	for _, d := range docs {
		fees = append(fees, d.model())
	}
	return fees, nil
}

func (s *MongoStore) DeleteFee(ctx context.Context, id string) error {
	res, err := s.fees.DeleteOne(ctx, idFilter(id))
	if err != nil {
		return errors.Wrap(err, "delete fee")
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoStore) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	var doc studentDoc
	err := s.students.FindOne(ctx, idFilter(id)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get student")
	}
	return &models.Student{ID: idString(doc.ID), Name: doc.Name, ClassName: doc.ClassName}, nil
}

func (s *MongoStore) GetRoute(ctx context.Context, id string) (*models.Route, error) {
	var doc routeDoc
	err := s.routes.FindOne(ctx, idFilter(id)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get route")
	}
	route := routeFromDoc(doc)
	return &route, nil
}

func routeFromDoc(doc routeDoc) models.Route {
	route := models.Route{ID: idString(doc.ID), Name: doc.Name}
	if bus := idString(doc.BusID); bus != "" {
		route.BusID = &bus
	}
	return route
}

func (s *MongoStore) ListStudents(ctx context.Context) ([]models.Student, error) {
	cursor, err := s.students.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list students")
	}
	defer cursor.Close(ctx)

	var docs []studentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode students")
	}
	students := make([]models.Student, 0, len(docs))
	for _, d := range docs {
		students = append(students, models.Student{ID: idString(d.ID), Name: d.Name, ClassName: d.ClassName})
	}
	return students, nil
}

func (s *MongoStore) ListRoutes(ctx context.Context) ([]models.Route, error) {
	cursor, err := s.routes.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "list routes")
	}
	defer cursor.Close(ctx)

	var docs []routeDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode routes")
	}
	routes := make([]models.Route, 0, len(docs))
	for _, d := range docs {
		routes = append(routes, routeFromDoc(d))
	}
	return routes, nil
}

func (s *MongoStore) UpsertAttendance(ctx context.Context, a *models.TransportAttendance) error {
	now := s.now()
	filter := bson.M{"studentId": refMatch(a.StudentID), "routeId": refMatch(a.RouteID), "date": a.Date}
	set := bson.M{"present": a.Present, "updatedAt": now}
	if a.BusID != nil {
		set["busId"] = refValue(*a.BusID)
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID(),
			"studentId": refValue(a.StudentID),
			"routeId":   refValue(a.RouteID),
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc attendanceDoc
	if err := s.attendances.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return errors.Wrap(err, "upsert attendance")
	}
	*a = doc.model()
	return nil
}

func (s *MongoStore) FindAttendance(ctx context.Context, date, routeID string) ([]models.TransportAttendance, error) {
	q := bson.M{}
	if date != "" {
		q["date"] = date
	}
	if routeID != "" {
		q["routeId"] = refMatch(routeID)
	}
	cursor, err := s.attendances.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "studentId", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find attendance")
	}
	defer cursor.Close(ctx)

	var docs []attendanceDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode attendance")
	}
	records := make([]models.TransportAttendance, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.model())
	}
	return records, nil
}
