package repository

const (
	selectPayer = `SELECT
		id,
		type,
		name,
		inn,
		kpp,
		first_name,
		last_name,
		document_number,
		balance,
		payment_options,
		service_ids,
		created_at,
		updated_at
	FROM payers`

	selectPurchase = `SELECT
		id,
		payer_id,
		service_id,
		service_name,
		plan_name,
		price_rub,
		cycle,
		status,
		method,
		invoice_number,
		invoice_document,
		login,
		password,
		payment_url,
		new_account,
		created_at,
		updated_at
	FROM purchases`

	selectCartItem = `SELECT
		id,
		service_id,
		service_name,
		service_color,
		tier_index,
		tier_name,
		price_usd,
		cycle,
		login,
		password,
		payment_url,
		new_account,
		created_at
	FROM cart_items`
)
