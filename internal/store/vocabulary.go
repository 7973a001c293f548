package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Difficulty grades how hard a sign is to learn.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Sign is one entry of the sign vocabulary, keyed by model class id.
type Sign struct {
	ID          string     `json:"id"`
	ClassID     int        `json:"class_id"`
	ClassName   string     `json:"class_name"`
	DisplayName string     `json:"display_name"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Difficulty  Difficulty `json:"difficulty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// defaultVocabulary describes the 17 classes of the bundled model.
var defaultVocabulary = []Sign{
	{ClassID: 0, ClassName: "an", DisplayName: "Ăn", Description: "Động tác ăn", Category: "Hoạt động", Difficulty: DifficultyBeginner},
	{ClassID: 1, ClassName: "ban", DisplayName: "Bạn", Description: "Xưng hô bạn bè", Category: "Xưng hô", Difficulty: DifficultyBeginner},
	{ClassID: 2, ClassName: "ban_be", DisplayName: "Bạn bè", Description: "Nhóm bạn bè", Category: "Quan hệ", Difficulty: DifficultyBeginner},
	{ClassID: 3, ClassName: "bao_nhieu", DisplayName: "Bao nhiêu", Description: "Hỏi số lượng", Category: "Câu hỏi", Difficulty: DifficultyIntermediate},
	{ClassID: 4, ClassName: "cai_gi", DisplayName: "Cái gì", Description: "Hỏi về vật", Category: "Câu hỏi", Difficulty: DifficultyIntermediate},
	{ClassID: 5, ClassName: "cam_on", DisplayName: "Cảm ơn", Description: "Lời cảm ơn", Category: "Giao tiếp", Difficulty: DifficultyBeginner},
	{ClassID: 6, ClassName: "gia_dinh", DisplayName: "Gia đình", Description: "Gia đình", Category: "Quan hệ", Difficulty: DifficultyBeginner},
	{ClassID: 7, ClassName: "khat", DisplayName: "Khát", Description: "Cảm giác khát nước", Category: "Cảm giác", Difficulty: DifficultyBeginner},
	{ClassID: 8, ClassName: "khoe", DisplayName: "Khỏe", Description: "Tình trạng sức khỏe", Category: "Cảm giác", Difficulty: DifficultyBeginner},
	{ClassID: 9, ClassName: "lam_on", DisplayName: "Làm ơn", Description: "Lời nhờ vả", Category: "Giao tiếp", Difficulty: DifficultyBeginner},
	{ClassID: 10, ClassName: "nhu_the_nao", DisplayName: "Như thế nào", Description: "Hỏi về cách thức", Category: "Câu hỏi", Difficulty: DifficultyIntermediate},
	{ClassID: 11, ClassName: "tam_biet", DisplayName: "Tạm biệt", Description: "Lời chào tạm biệt", Category: "Giao tiếp", Difficulty: DifficultyBeginner},
	{ClassID: 12, ClassName: "ten_la", DisplayName: "Tên là", Description: "Giới thiệu tên", Category: "Giao tiếp", Difficulty: DifficultyBeginner},
	{ClassID: 13, ClassName: "toi", DisplayName: "Tôi", Description: "Xưng hô ngôi thứ nhất", Category: "Xưng hô", Difficulty: DifficultyBeginner},
	{ClassID: 14, ClassName: "tuoi", DisplayName: "Tuổi", Description: "Độ tuổi", Category: "Thông tin", Difficulty: DifficultyBeginner},
	{ClassID: 15, ClassName: "xin_chao", DisplayName: "Xin chào", Description: "Lời chào", Category: "Giao tiếp", Difficulty: DifficultyBeginner},
	{ClassID: 16, ClassName: "xin_loi", DisplayName: "Xin lỗi", Description: "Lời xin lỗi", Category: "Giao tiếp", Difficulty: DifficultyBeginner},
}

// seedVocabulary inserts the default signs; existing class ids are left untouched.
func (s *Store) seedVocabulary() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO sign_vocabulary
		 (id, class_id, class_name, display_name, description, category, difficulty, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, v := range defaultVocabulary {
		if _, err := stmt.Exec(uuid.New().String(), v.ClassID, v.ClassName, v.DisplayName,
			v.Description, v.Category, string(v.Difficulty), now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// VocabularyRepository provides read access to the sign vocabulary.
type VocabularyRepository struct {
	db *sql.DB
}

// Vocabulary returns the vocabulary repository for this store.
func (s *Store) Vocabulary() *VocabularyRepository {
	return &VocabularyRepository{db: s.db}
}

// List returns all signs ordered by class id, optionally filtered by category.
func (r *VocabularyRepository) List(category string) ([]*Sign, error) {
	query := `SELECT id, class_id, class_name, display_name, description, category, difficulty, created_at
		 FROM sign_vocabulary`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY class_id`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signs []*Sign
	for rows.Next() {
		sign, err := scanSign(rows)
		if err != nil {
			return nil, err
		}
		signs = append(signs, sign)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return signs, nil
}

// GetByClassID retrieves the sign for a model class id.
func (r *VocabularyRepository) GetByClassID(classID int) (*Sign, error) {
	row := r.db.QueryRow(
		`SELECT id, class_id, class_name, display_name, description, category, difficulty, created_at
		 FROM sign_vocabulary WHERE class_id = ?`,
		classID,
	)

	sign, err := scanSign(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sign, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSign(row scanner) (*Sign, error) {
	s := &Sign{}
	var difficulty string
	if err := row.Scan(&s.ID, &s.ClassID, &s.ClassName, &s.DisplayName,
		&s.Description, &s.Category, &difficulty, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Difficulty = Difficulty(difficulty)
	return s, nil
}
