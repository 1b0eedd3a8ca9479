package usecase

import (
	"stock_alerts/internal/feature/alert/domain/condition"
	"stock_alerts/internal/feature/alert/domain/entity"
	indentity "stock_alerts/internal/feature/indicator/domain/entity"
)

// Evaluator はアラートの条件式をスナップショットに対して評価します。
// 状態を持たず、前回スナップショットは呼び出し側が明示的に渡します。
type Evaluator struct{}

// Evaluate は条件が成立しているかを返します。
// 条件式が壊れている場合は domain.ErrMalformedCondition をラップしたエラーを返します。
func (Evaluator) Evaluate(alert entity.Alert, cur indentity.Snapshot, prev *indentity.Snapshot) (bool, error) {
	expr, err := condition.Parse(alert.Condition)
	if err != nil {
		return false, err
	}
	return condition.Evaluate(expr, cur, prev)
}
